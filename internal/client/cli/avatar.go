package cli

import (
	"context"
	"path/filepath"

	"github.com/credlink/credlink/internal/client/models"
)

// Avatar handles "avatar", "avatar upload <path>", and "avatar delete".
func (a *App) Avatar(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return a.showAvatar(ctx)
	}

	switch args[0] {
	case "upload":
		if len(args) < 2 {
			printlnFn("Usage: avatar upload <path>")
			return nil
		}
		return a.uploadAvatar(ctx, args[1])
	case "delete":
		return a.deleteAvatar(ctx)
	default:
		printlnFn("Usage: avatar [upload <path>|delete]")
		return nil
	}
}

func (a *App) showAvatar(ctx context.Context) error {
	avatar, err := a.avatars.Get(ctx)
	if err != nil {
		printlnFn("Failed to fetch avatar:", err.Error())
		return err
	}
	if avatar == nil {
		printlnFn("No avatar set")
		return nil
	}
	printlnFn("Avatar:", avatar.Filename, avatar.URI)
	return nil
}

func (a *App) uploadAvatar(ctx context.Context, path string) error {
	asset := models.PhotoAsset{
		LocalURI: path,
		Filename: filepath.Base(path),
	}

	avatar, err := a.avatars.Upload(ctx, asset)
	if err != nil {
		printlnFn("Upload failed:", err.Error())
		return err
	}
	printlnFn("Avatar updated:", avatar.URI)
	return nil
}

func (a *App) deleteAvatar(ctx context.Context) error {
	avatar, err := a.avatars.Get(ctx)
	if err != nil {
		return err
	}
	if avatar == nil {
		printlnFn("No avatar to delete")
		return nil
	}

	if err := a.avatars.Delete(ctx, avatar.ID); err != nil {
		printlnFn("Delete failed:", err.Error())
		return err
	}
	printlnFn("Avatar deleted")
	return nil
}
