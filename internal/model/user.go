package model

type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
}
