package console

import "time"

// UserForm is the create/edit payload for a user. An empty password on
// update leaves the stored one untouched.
type UserForm struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
}

func NewUserForm() UserForm { return UserForm{} }

// UserFormFrom pre-fills a form for editing u; the password is never echoed.
func UserFormFrom(u User) UserForm {
	return UserForm{Name: u.Name, Email: u.Email}
}

func userID(u User) int64 { return u.ID }

// UserSchema searches name and email.
var UserSchema = Schema[User]{
	Noun: "User",
	ID:   userID,
	Search: func(u User) []string {
		return []string{u.Name, u.Email}
	},
	Sorts: map[string]Comparator[User]{
		"id":         ByNumber(userID),
		"name":       ByText(func(u User) string { return u.Name }),
		"email":      ByText(func(u User) string { return u.Email }),
		"created_at": ByTime(func(u User) Timestamp { return u.CreatedAt }),
		"updated_at": ByTime(func(u User) Timestamp { return u.UpdatedAt }),
	},
}

// Users is the list controller for patron accounts.
type Users = List[User, UserForm]

func NewUsers(c *Client, deps Deps) *Users {
	res := ResourceFuncs[User, UserForm]{
		ListFn:   c.ListUsers,
		CreateFn: c.CreateUser,
		UpdateFn: c.UpdateUser,
		DeleteFn: c.DeleteUser,
	}
	return NewList(UserSchema, res, deps, NewUserForm, UserFormFrom)
}

// UserStats counts accounts and those created in the last seven days.
type UserStats struct {
	Total         int
	RecentlyAdded int
}

func UserStatsOf(users []User, now time.Time) UserStats {
	cutoff := now.Add(-7 * 24 * time.Hour)
	s := UserStats{Total: len(users)}
	for _, u := range users {
		if u.CreatedAt.After(cutoff) {
			s.RecentlyAdded++
		}
	}
	return s
}
