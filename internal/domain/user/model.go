package user

// RegisterRequest - данные для регистрации на удалённом источнике
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest - данные для входа
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Session - авторизованная сессия, полученная от удалённого источника
type Session struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}
