package backup

import (
	"bytes"
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

var _ folderStore = (*DriveFolders)(nil)

// DriveFolders keeps backups in a Google Drive folder, optionally shared read-only with
// one address.
type DriveFolders struct {
	service   *drive.Service
	shareWith string
}

func NewDriveFolders(ctx context.Context, credentialsJSON []byte, shareWith string) (*DriveFolders, error) {
	// https://github.com/googleapis/google-api-go-client/blob/master/drive/v3/drive-gen.go
	service, err := drive.NewService(ctx, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve drive client: %w", err)
	}
	return &DriveFolders{service: service, shareWith: shareWith}, nil
}

func (d *DriveFolders) EnsureFolder(ctx context.Context, name string) (string, error) {
	query := fmt.Sprintf("mimeType = '%s' and trashed = false and name = '%s'", folderMimeType, name)
	found, err := d.service.
		Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve folders: %w", err)
	}

	switch len(found.Files) {
	case 0:
		log.Infof("backup: folder %s not found, creating it", name)
	case 1:
		return found.Files[0].Id, nil
	default:
		log.Warnf("backup: found %d folders named %s, taking the first one: %s", len(found.Files), name, found.Files[0].Id)
		return found.Files[0].Id, nil
	}

	folder, err := d.service.
		Files.Create(&drive.File{Name: name, MimeType: folderMimeType}).
		Fields("id").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("create folder %s: %w", name, err)
	}
	if err := d.share(ctx, folder.Id); err != nil {
		return folder.Id, err
	}
	return folder.Id, nil
}

func (d *DriveFolders) ListFiles(ctx context.Context, folderID string) ([]string, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false", folderID, folderMimeType)
	files, err := d.service.
		Files.List().
		Q(query).
		Fields("files(id, name)").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(files.Files))
	for _, f := range files.Files {
		names = append(names, f.Name)
	}
	return names, nil
}

func (d *DriveFolders) Upload(ctx context.Context, folderID, name string, content []byte) (string, error) {
	file, err := d.service.
		Files.Create(&drive.File{
			Name:     name,
			MimeType: "application/json",
			Parents:  []string{folderID},
		}).
		Fields("id, parents").
		Media(bytes.NewReader(content)).
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if err := d.share(ctx, file.Id); err != nil {
		return file.Id, err
	}
	return file.Id, nil
}

func (d *DriveFolders) share(ctx context.Context, fileID string) error {
	if d.shareWith == "" {
		return nil
	}
	permission, err := d.service.Permissions.
		Create(fileID, &drive.Permission{
			EmailAddress: d.shareWith,
			Type:         "user",
			Role:         "reader",
		}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("share %s: %w", fileID, err)
	}
	log.Debugf("backup: permission %s created for %s", permission.Id, fileID)
	return nil
}
