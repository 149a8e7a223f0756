package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/credlink/credlink/internal/client/models"
	"github.com/credlink/credlink/internal/client/services"
	"github.com/credlink/credlink/internal/common"
)

// Verify drives the verification wizard end to end: type selection,
// personal and education blocks, the two image captures, review, submit.
func (a *App) Verify(ctx context.Context) error {
	if !a.isLoggedIn() {
		printlnFn("Log in first")
		return nil
	}

	reqType, err := a.promptType()
	if err != nil {
		return err
	}

	a.flow = services.NewVerificationFlow(reqType, a.apiClient, a.session, a.requests, a.log, nil)

	if err := a.collectPersonal(ctx); err != nil {
		return err
	}
	if err := a.collectEducation(ctx); err != nil {
		return err
	}
	if err := a.captureImage(ctx, "selfie"); err != nil {
		return err
	}
	if err := a.captureImage(ctx, "id"); err != nil {
		return err
	}

	return a.reviewAndSubmit(ctx)
}

func (a *App) promptType() (models.RequestType, error) {
	t, err := getSimpleText(a.reader, "Request type (DEGREE or TOR)", os.Stdout)
	if err != nil {
		return "", err
	}
	switch strings.ToUpper(t) {
	case "DEGREE":
		return models.RequestTypeDegree, nil
	case "TOR":
		return models.RequestTypeTOR, nil
	default:
		printlnFn("Unknown type:", t)
		return "", common.New(common.CodeValidation, "unknown request type")
	}
}

func (a *App) collectPersonal(ctx context.Context) error {
	fullName, err := getSimpleText(a.reader, "Full name", os.Stdout)
	if err != nil {
		return err
	}
	address, err := getSimpleText(a.reader, "Address", os.Stdout)
	if err != nil {
		return err
	}
	birthPlace, err := getSimpleText(a.reader, "Birth place", os.Stdout)
	if err != nil {
		return err
	}
	birthDate, err := getSimpleText(a.reader, "Birth date (YYYY-MM-DD)", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.flow.SubmitPersonal(models.PersonalInfo{
		FullName:   fullName,
		Address:    address,
		BirthPlace: birthPlace,
		BirthDate:  birthDate,
	}); err != nil {
		printlnFn("Invalid input:", err.Error())
		return err
	}
	return nil
}

func (a *App) collectEducation(ctx context.Context) error {
	highSchool, err := getSimpleText(a.reader, "High school", os.Stdout)
	if err != nil {
		return err
	}
	admission, err := getSimpleText(a.reader, "Admission date", os.Stdout)
	if err != nil {
		return err
	}
	graduation, err := getSimpleText(a.reader, "Graduation date", os.Stdout)
	if err != nil {
		return err
	}
	lrn, err := getSimpleText(a.reader, "LRN (leave blank if forgotten)", os.Stdout)
	if err != nil {
		return err
	}
	course, err := getSimpleText(a.reader, "Course", os.Stdout)
	if err != nil {
		return err
	}

	if err := a.flow.SubmitEducation(models.EducationInfo{
		HighSchool:     highSchool,
		AdmissionDate:  admission,
		GraduationDate: graduation,
		LRN:            lrn,
		Course:         course,
	}); err != nil {
		printlnFn("Invalid input:", err.Error())
		return err
	}
	return nil
}

// captureImage stands in for the camera screen: the user provides a path
// to an already captured file.
func (a *App) captureImage(ctx context.Context, kind string) error {
	path, err := getSimpleText(a.reader, "Path to "+kind+" image", os.Stdout)
	if err != nil {
		return err
	}

	asset := models.PhotoAsset{LocalURI: path, Filename: filepath.Base(path)}

	if kind == "selfie" {
		err = a.flow.AttachSelfie(asset)
	} else {
		err = a.flow.AttachIDDocument(asset)
	}
	if err != nil {
		printlnFn("Invalid capture:", err.Error())
		return err
	}
	return nil
}

func (a *App) reviewAndSubmit(ctx context.Context) error {
	confirm, err := getSimpleText(a.reader, "Submit request? (yes/no)", os.Stdout)
	if err != nil {
		return err
	}
	if !strings.EqualFold(confirm, "yes") && !strings.EqualFold(confirm, "y") {
		printlnFn("Submission cancelled; wizard kept at review")
		return nil
	}

	created, err := a.flow.Submit(ctx)
	if err != nil {
		var uploadErr *services.UploadError
		switch {
		case common.HasCode(err, common.CodeDuplicateRequest):
			printlnFn("You already have a pending request of this type")
		case errors.As(err, &uploadErr):
			printlnFn("Could not upload", string(uploadErr.Stage), "image:", uploadErr.Err.Error())
		default:
			printlnFn("Submission failed:", err.Error())
		}
		return err
	}

	printlnFn("Request submitted:", created.ID, "status:", string(created.Status))
	a.flow = nil
	return nil
}
