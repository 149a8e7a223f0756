package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/credlink/credlink/internal/client/api"
	"github.com/credlink/credlink/internal/client/metrics"
	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/common"
	"github.com/credlink/credlink/internal/logging"
	"github.com/google/uuid"
)

// FlowState is the single discriminated state of a verification wizard.
type FlowState string

const (
	StateCollectingPersonalInfo  FlowState = "collecting_personal_info"
	StateCollectingEducationInfo FlowState = "collecting_education_info"
	StateCapturingSelfie         FlowState = "capturing_selfie"
	StateCapturingIDDocument     FlowState = "capturing_id_document"
	StateReviewAndConfirm        FlowState = "review_and_confirm"
	StateSubmitting              FlowState = "submitting"
	StateCompleted               FlowState = "completed"
	StateFailed                  FlowState = "failed"
)

// forwardOrder defines the strict forward path of the wizard. Back-steps
// are only ever to the immediately adjacent prior state.
var forwardOrder = []FlowState{
	StateCollectingPersonalInfo,
	StateCollectingEducationInfo,
	StateCapturingSelfie,
	StateCapturingIDDocument,
	StateReviewAndConfirm,
}

// UploadStage tags which image upload failed during submission.
type UploadStage string

const (
	StageSelfie     UploadStage = "selfie"
	StageIDDocument UploadStage = "id"
)

// UploadError reports a failed image upload. The whole submission aborts on
// the first one; the metadata endpoint is never reached.
type UploadError struct {
	Stage UploadStage
	Err   error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s upload failed: %v", e.Stage, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// VerificationFlow coordinates one "create verification request"
// transaction: a strictly ordered wizard whose Submit step runs existence
// check, selfie upload, ID upload, and metadata submit sequentially,
// failing fast at each step.
type VerificationFlow struct {
	id       string
	reqType  models.RequestType
	api      api.Client
	session  *SessionStore
	requests *RequestsService
	log      logging.Logger
	metrics  *metrics.Metrics

	mu         sync.Mutex
	state      FlowState
	personal   *models.PersonalInfo
	education  *models.EducationInfo
	selfie     *models.PhotoAsset
	idDocument *models.PhotoAsset
	result     *models.VerificationRequest
	submitting bool
}

// NewVerificationFlow starts a wizard for the given request type.
func NewVerificationFlow(t models.RequestType, client api.Client, session *SessionStore, requests *RequestsService, log logging.Logger, m *metrics.Metrics) *VerificationFlow {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &VerificationFlow{
		id:       uuid.NewString(),
		reqType:  t,
		api:      client,
		session:  session,
		requests: requests,
		log:      log.With("flow", t),
		metrics:  m,
		state:    StateCollectingPersonalInfo,
	}
}

// ID identifies this wizard instance.
func (f *VerificationFlow) ID() string { return f.id }

// State returns the current wizard state.
func (f *VerificationFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Result returns the created request after a completed submission.
func (f *VerificationFlow) Result() *models.VerificationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

func invalidTransition(from FlowState, action string) error {
	return common.Newf(common.CodeValidation, "cannot %s while %s", action, from)
}

// SubmitPersonal validates the personal block and advances to education.
func (f *VerificationFlow) SubmitPersonal(info models.PersonalInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollectingPersonalInfo {
		return invalidTransition(f.state, "submit personal info")
	}
	if strings.TrimSpace(info.FullName) == "" {
		return common.New(common.CodeValidation, "full name is required")
	}
	if strings.TrimSpace(info.BirthDate) == "" {
		return common.New(common.CodeValidation, "birth date is required")
	}

	f.personal = &info
	f.state = StateCollectingEducationInfo
	return nil
}

// SubmitEducation validates the education block and advances to the selfie
// capture. A blank LRN is normalized to "N/A".
func (f *VerificationFlow) SubmitEducation(info models.EducationInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCollectingEducationInfo {
		return invalidTransition(f.state, "submit education info")
	}
	if strings.TrimSpace(info.HighSchool) == "" {
		return common.New(common.CodeValidation, "high school is required")
	}
	if strings.TrimSpace(info.LRN) == "" {
		info.LRN = "N/A"
	}

	f.education = &info
	f.state = StateCapturingSelfie
	return nil
}

// AttachSelfie stages the captured selfie and advances to the ID capture.
func (f *VerificationFlow) AttachSelfie(asset models.PhotoAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCapturingSelfie {
		return invalidTransition(f.state, "attach selfie")
	}
	if asset.LocalURI == "" && asset.ID == "" {
		return common.New(common.CodeValidation, "selfie capture is empty")
	}
	f.selfie = &asset
	f.state = StateCapturingIDDocument
	return nil
}

// AttachIDDocument stages the ID document image and advances to review.
func (f *VerificationFlow) AttachIDDocument(asset models.PhotoAsset) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != StateCapturingIDDocument {
		return invalidTransition(f.state, "attach id document")
	}
	if asset.LocalURI == "" && asset.ID == "" {
		return common.New(common.CodeValidation, "id capture is empty")
	}
	f.idDocument = &asset
	f.state = StateReviewAndConfirm
	return nil
}

// Back steps to the immediately preceding state. It is rejected while a
// submission is in flight and from terminal states.
func (f *VerificationFlow) Back() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, s := range forwardOrder {
		if s != f.state {
			continue
		}
		if i == 0 {
			return invalidTransition(f.state, "go back")
		}
		f.state = forwardOrder[i-1]
		return nil
	}
	return invalidTransition(f.state, "go back")
}

// Submit runs the submission pipeline. Steps are strictly sequential and
// fail fast:
//
//  1. existence check: a pending request of the same type aborts with a
//     duplicate-request error and returns to review;
//  2. selfie upload;
//  3. ID document upload;
//  4. metadata submit.
//
// A failed upload returns to review without touching later steps. A failed
// metadata submit is terminal for this wizard; the two uploaded images stay
// behind as server-side orphans and no compensating delete is attempted.
func (f *VerificationFlow) Submit(ctx context.Context) (*models.VerificationRequest, error) {
	if err := f.enterSubmitting(); err != nil {
		return nil, err
	}

	result, err := f.submit(ctx)

	f.mu.Lock()
	f.submitting = false
	switch {
	case err == nil:
		f.state = StateCompleted
		f.result = result
	case isSubmitTerminal(err):
		f.state = StateFailed
	default:
		f.state = StateReviewAndConfirm
	}
	f.mu.Unlock()

	if err != nil {
		f.metrics.ObserveFlowSubmit(string(common.CodeOf(err)))
		return nil, err
	}
	f.metrics.ObserveFlowSubmit("ok")
	return result, nil
}

func (f *VerificationFlow) enterSubmitting() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.submitting {
		// Double-tap guard: one submission per wizard at a time.
		return common.New(common.CodeDuplicateRequest, "submission already in progress")
	}
	if f.state != StateReviewAndConfirm {
		return invalidTransition(f.state, "submit")
	}
	if f.personal == nil || f.education == nil || f.selfie == nil || f.idDocument == nil {
		return common.New(common.CodeValidation, "wizard is incomplete")
	}

	f.submitting = true
	f.state = StateSubmitting
	return nil
}

// terminalError marks the metadata-submit failure, after which the wizard
// is done.
type terminalError struct{ error }

func (t terminalError) Unwrap() error { return t.error }

func isSubmitTerminal(err error) bool {
	var t terminalError
	return errors.As(err, &t)
}

func (f *VerificationFlow) submit(ctx context.Context) (*models.VerificationRequest, error) {
	user := f.session.CurrentUser()
	if user == nil || user.Token == "" {
		return nil, common.New(common.CodeMissingCredential, "not logged in")
	}

	// Step 1: never allow two pending requests of the same type.
	pending, err := f.requests.HasPending(ctx, f.reqType)
	if err != nil {
		return nil, err
	}
	if pending {
		f.log.Info(ctx, "duplicate submission blocked")
		return nil, common.Newf(common.CodeDuplicateRequest, "a %s request is already pending", f.reqType)
	}

	// Step 2: selfie before anything else touches the server.
	selfieID, err := f.ensureUploaded(ctx, user.Token, f.selfie, StageSelfie)
	if err != nil {
		return nil, err
	}

	// Step 3: ID document.
	idImageID, err := f.ensureUploaded(ctx, user.Token, f.idDocument, StageIDDocument)
	if err != nil {
		return nil, err
	}

	// Step 4: one aggregated metadata submit.
	created, err := f.requests.Create(ctx, api.CreateRequestInput{
		Type:          f.reqType,
		Personal:      *f.personal,
		Education:     *f.education,
		SelfieImageID: selfieID,
		IDImageID:     idImageID,
	})
	if err != nil {
		f.log.Error(ctx, "metadata submit failed, uploaded images orphaned",
			"selfie", selfieID, "id", idImageID, "err", err)
		return nil, terminalError{err}
	}
	return created, nil
}

// ensureUploaded uploads a staged asset, or returns the existing backend id
// for an asset a prior attempt already uploaded. The backend id survives on
// the staged asset so an aborted submission does not re-upload.
func (f *VerificationFlow) ensureUploaded(ctx context.Context, token string, asset *models.PhotoAsset, stage UploadStage) (string, error) {
	if asset.ID != "" {
		return asset.ID, nil
	}

	uploaded, err := f.api.UploadPhoto(ctx, token, *asset)
	if err != nil {
		err = f.session.InvalidateOnAuthError(ctx, err)
		return "", &UploadError{Stage: stage, Err: err}
	}

	asset.ID = uploaded.ID
	asset.URI = uploaded.URI
	return uploaded.ID, nil
}
