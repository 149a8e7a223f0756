package cli

import (
	"context"

	"github.com/credlink/credlink/internal/client/models"
)

// Requests handles "requests" (cached list) and "requests refresh"
// (server view merged in).
func (a *App) Requests(ctx context.Context, args []string) error {
	refresh := len(args) > 0 && args[0] == "refresh"

	var (
		list []models.VerificationRequest
		err  error
	)
	if refresh {
		list, err = a.requests.Refresh(ctx)
	} else {
		list, err = a.requests.List(ctx)
	}
	if err != nil {
		printlnFn("Failed to list requests:", err.Error())
		return err
	}

	if len(list) == 0 {
		printlnFn("No verification requests yet")
		return nil
	}
	for _, r := range list {
		printlnFn(r.ID, string(r.Type), string(r.Status), r.CreatedAt.Format("2006-01-02"))
	}
	return nil
}
