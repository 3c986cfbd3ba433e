package welcome

import (
	"context"
	"net/url"
)

// CameraPicture is an image fetched from the camera picture endpoint.
// Data is the raw payload as served, usually a JPEG.
type CameraPicture struct {
	ImageID     string
	Key         string
	ContentType string
	Data        []byte
}

// NewCameraPicture downloads the picture identified by imageID and key.
func NewCameraPicture(ctx context.Context, s *Session, imageID, key string) (*CameraPicture, error) {
	if imageID == "" {
		return nil, ErrEmptyImageID
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	params := url.Values{}
	params.Set("image_id", imageID)
	params.Set("key", key)

	params, err := s.authParams(ctx, params)
	if err != nil {
		return nil, err
	}

	resp, err := s.postRaw(ctx, pathGetCameraPicture, params, s.maxPictureSize)
	if err != nil {
		return nil, err
	}

	return &CameraPicture{
		ImageID:     imageID,
		Key:         key,
		ContentType: resp.ContentType,
		Data:        resp.Body,
	}, nil
}

// NewSnapshotPicture downloads the picture an event snapshot points at.
func NewSnapshotPicture(ctx context.Context, s *Session, snap *Snapshot) (*CameraPicture, error) {
	if snap == nil {
		return nil, ErrEmptyImageID
	}
	return NewCameraPicture(ctx, s, snap.ID, snap.Key)
}
