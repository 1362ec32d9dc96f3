package dto

type UpdateProfileRequest struct {
	Username  *string `json:"username"`
	FullName  *string `json:"fullName"`
	AvatarURL *string `json:"avatarUrl"`
}
