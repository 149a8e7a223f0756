package models

// Avatar is the single profile image record for an account. The display
// layer holds only a weak reference to it via the session user; the avatar
// service owns the record and its cache entry.
type Avatar struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	URI         string `json:"uri"`
}

// PhotoAsset is a captured image staged for upload (selfie or ID document).
// LocalURI points at the on-device file before upload; ID and URI are
// assigned by the backend once uploaded. Assets live only for the duration
// of one verification submission and are never persisted.
type PhotoAsset struct {
	ID       string `json:"id"`
	URI      string `json:"uri"`
	LocalURI string `json:"-"`
	Filename string `json:"filename"`
}
