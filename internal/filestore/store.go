// Package filestore keeps trip proof uploads (odometer photos, verification
// videos) and hands back the URL stored on the job.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"uturn/pkg/utils"
)

var ErrEmptyUpload = errors.New("empty upload")

type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Key builds an object key such as "jobs/<id>/video/<uuid>.mp4" from a scope
// ("jobs/<id>", "drivers/<id>") and a purpose. The extension comes from the
// original filename when it has one.
func Key(scope, purpose, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return fmt.Sprintf("%s/%s/%s%s", scope, purpose, utils.GenerateID(), ext)
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
