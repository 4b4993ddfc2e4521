// Package access converts a granted access decision into a short-lived
// retrieval credential for the underlying object.
package access

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/payview/server/internal/ledger"
	"github.com/payview/server/internal/model"
	"github.com/payview/server/internal/store"
)

// ErrDenied covers both "no such file" and "no access grant" so a caller
// cannot probe for object existence.
var ErrDenied = errors.New("access denied")

// URLTTL is the validity window of issued retrieval URLs.
const URLTTL = time.Hour

// Presigner is the slice of the storage client the issuer needs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, expires time.Duration) (string, error)
}

type Issuer struct {
	ledger    *ledger.Ledger
	files     *store.FileStore
	presigner Presigner
	logger    *slog.Logger
}

func NewIssuer(l *ledger.Ledger, files *store.FileStore, presigner Presigner, logger *slog.Logger) *Issuer {
	return &Issuer{ledger: l, files: files, presigner: presigner, logger: logger}
}

// IssueURL evaluates access and, only if granted, mints a time-boxed signed
// URL for the file's object. Denial never contacts storage. Results are
// viewer-and-time-scoped and must not be cached server-side.
func (i *Issuer) IssueURL(ctx context.Context, fileID, viewerID string) (string, error) {
	file, err := i.files.GetByID(fileID)
	if err != nil {
		return "", err
	}
	if file == nil {
		return "", ErrDenied
	}

	granted, err := i.ledger.EvaluateAccess(file, viewerID)
	if err != nil {
		return "", err
	}
	if !granted {
		return "", ErrDenied
	}

	url, err := i.presigner.PresignGet(ctx, ObjectKey(file), URLTTL)
	if err != nil {
		return "", err
	}

	if err := i.files.IncrementDownloadCount(file.ID); err != nil {
		i.logger.Warn("increment download count", "file_id", file.ID, "error", err)
	}
	return url, nil
}

// ObjectKey derives the storage key for a file's object: the creator's ID
// followed by the final path element of the stored URL.
func ObjectKey(file *model.File) string {
	name := file.FileURL
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		name = name[i+1:]
	}
	return file.CreatorID + "/" + name
}
