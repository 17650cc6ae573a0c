package handlers

const (
	maxHistoryPageSize = 50 // Maximum page size for generation history

	// Messages shared by several handlers
	msgSessionNotFound  = "Session not found"
	msgDatabaseDisabled = "User accounts are not available: no database configured"
)

// image extensions accepted by /api/analyze/image, with the MIME type sent upstream
var allowedImageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
}
