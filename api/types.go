package api

import "time"

// User is an account on the service. Role is "USER" or "ADMIN".
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
}

// Interview is a single interview question.
type Interview struct {
	ID        int64     `json:"id"`
	Question  string    `json:"question"`
	CompanyID int64     `json:"companyId,omitempty"`
	Company   string    `json:"company,omitempty"`
	Category  string    `json:"category,omitempty"`
	Year      int       `json:"year,omitempty"`
	AuthorID  string    `json:"authorId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Company is an organisation questions are attributed to.
type Company struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Industry string `json:"industry,omitempty"`
	Location string `json:"location,omitempty"`
}

// Group is a user-curated collection of interview questions.
type Group struct {
	ID         int64   `json:"id"`
	Name       string  `json:"name"`
	OwnerID    string  `json:"ownerId"`
	Interviews []int64 `json:"interviewIds,omitempty"`
}

// Bookmark marks an interview question for later.
type Bookmark struct {
	ID          int64     `json:"id"`
	InterviewID int64     `json:"interviewId"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Answer is a reply to an interview question.
type Answer struct {
	ID          int64     `json:"id"`
	InterviewID int64     `json:"interviewId"`
	AuthorID    string    `json:"authorId"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuthResponse is the payload of login, register and refresh. Deployments
// differ on the token field name, hence both accessToken and token.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"` // seconds; zero when absent
	User         *User  `json:"user,omitempty"`
}

// BearerToken returns whichever token field the server populated.
func (r *AuthResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}
