package requests

import "fmt"

type Level int

const (
	Guest     Level = 0
	UserLevel Level = 10
	Admin     Level = 20
)

func (l Level) String() string {
	switch l {
	case Guest:
		return "guest"
	case UserLevel:
		return "user"
	case Admin:
		return "admin"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

func ParseLevel(s string) (Level, error) {
	switch s {
	case "guest":
		return Guest, nil
	case "", "user":
		return UserLevel, nil
	case "admin":
		return Admin, nil
	}
	return 0, fmt.Errorf("%w: unknown level %q", ErrInvalidRequest, s)
}

type User struct {
	Name  string `json:"name"`
	Level Level  `json:"level"`
}

func (u *User) Valid() bool {
	if u == nil || u.Name == "" {
		return false
	}
	switch u.Level {
	case Guest, UserLevel, Admin:
		return true
	}
	return false
}
