package models

import "time"

// RequestType selects which credential a verification request asks for.
type RequestType string

const (
	RequestTypeDegree RequestType = "DEGREE"
	RequestTypeTOR    RequestType = "TOR"
)

// RequestStatus is the server-authoritative lifecycle of a request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
	RequestIssued   RequestStatus = "issued"
)

// PersonalInfo is the applicant identity block of a verification request.
type PersonalInfo struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	BirthPlace string `json:"birthPlace"`
	BirthDate  string `json:"birthDate"`
}

// EducationInfo is the schooling block. LRN may be blank on input; it is
// submitted as "N/A" in that case. Course and YearGraduated apply to
// DEGREE/TOR requests and may be empty.
type EducationInfo struct {
	HighSchool     string `json:"highSchool"`
	AdmissionDate  string `json:"admissionDate"`
	GraduationDate string `json:"graduationDate"`
	LRN            string `json:"lrn,omitempty"`
	Course         string `json:"course,omitempty"`
	YearGraduated  string `json:"yearGraduated,omitempty"`
}

// VerificationRequest is immutable once created except for Status, which
// only the server changes. The local collection is append-only.
type VerificationRequest struct {
	ID            string        `json:"id"`
	Type          RequestType   `json:"type"`
	Personal      PersonalInfo  `json:"personal"`
	Education     EducationInfo `json:"education"`
	SelfieImageID string        `json:"selfieImageId"`
	IDImageID     string        `json:"idImageId"`
	Status        RequestStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
}
