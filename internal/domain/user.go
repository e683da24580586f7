package domain

type CreateUserCommand struct {
	Email       string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Role        Role
}

type UpdateUserCommand struct {
	Email       *string
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Password    *string
	IsActive    *bool
}

type ListUsersQuery struct {
	Role     *Role
	Page     int
	PageSize int
}

type PagedUsers struct {
	Users      []*User
	TotalCount int64
	Page       int
	PageSize   int
	TotalPages int
}
