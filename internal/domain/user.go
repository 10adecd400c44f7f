package domain

// Role access level of a dashboard user.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleDirector Role = "DIRECTOR"
	RoleStaff    Role = "STAFF"
)

// String returns the string representation.
func (r Role) String() string {
	return string(r)
}

// User dashboard account. Directors are users with RoleDirector.
type User struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,numeric,min=10,max=15"`
	Role     Role   `json:"role" validate:"required,oneof=ADMIN DIRECTOR STAFF"`
	IsActive bool   `json:"isActive"`
	// Password is only sent on create or reset and never returned.
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
}

func (u User) GetID() string { return u.ID }

func (u User) Columns() []string {
	return []string{"ID", "Name", "Email", "Role", "Active"}
}

func (u User) Cells() []string {
	return []string{u.ID, u.Name, u.Email, u.Role.String(), boolCell(u.IsActive)}
}
