package welcome

import "context"

// User is the account record of the authenticated user.
type User struct {
	ID         string   `json:"_id"`
	DeviceIDs  []string `json:"devices"`
	OwnerEmail string   `json:"mail"`
}

// NewUser fetches the account record of the session's user.
func NewUser(ctx context.Context, s *Session) (*User, error) {
	env, err := s.call(ctx, pathGetUser, nil, "user")
	if err != nil {
		return nil, err
	}
	return unmarshalResponse[User](env.Body, "user")
}
