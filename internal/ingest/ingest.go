// Package ingest streams multipart uploads to disk without buffering the
// media in memory.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/alnah/go-clipper/internal/media"
)

// Upload ceilings.
const (
	// DefaultMaxBytes caps a whole request body.
	DefaultMaxBytes int64 = 500 * 1000 * 1000

	// DefaultMaxFieldBytes caps each text field.
	DefaultMaxFieldBytes int64 = 1 << 20

	// copyBufferSize is the chunk size used to move the file part to disk.
	copyBufferSize = 64 * 1024
)

// uploadFilePerm keeps uploads private to the current user.
const uploadFilePerm = 0o600

// safeExt matches file extensions worth keeping on the stored upload.
var safeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

// Config controls what an Ingestor accepts. Zero fields take defaults.
type Config struct {
	MaxBytes      int64
	MaxFieldBytes int64
	// AllowedTypes lists accepted MIME prefixes such as "video/".
	AllowedTypes []string
	Logger       *slog.Logger
}

// Upload is a file received from a client plus its text fields.
type Upload struct {
	File        *media.Handle
	Filename    string // as sent by the client, for display only
	ContentType string
	Size        int64
	Fields      map[string]string
}

// Ingestor accepts one multipart/form-data request at a time per call.
type Ingestor struct {
	cfg Config
}

// New creates an Ingestor.
func New(cfg Config) *Ingestor {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.MaxFieldBytes <= 0 {
		cfg.MaxFieldBytes = DefaultMaxFieldBytes
	}
	if len(cfg.AllowedTypes) == 0 {
		cfg.AllowedTypes = []string{"audio/", "video/"}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ingestor{cfg: cfg}
}

// AllowedTypes returns the accepted MIME prefixes.
func (in *Ingestor) AllowedTypes() []string { return slices.Clone(in.cfg.AllowedTypes) }

// MaxBytes returns the body ceiling in effect.
func (in *Ingestor) MaxBytes() int64 { return in.cfg.MaxBytes }

// Ingest streams req's single file part to ws as "<id>-upload<ext>" and
// collects its text fields.
//
// The file part's declared Content-Type is checked before any of its body is
// read, and a rejected part is left unread. The byte ceiling applies to the
// whole body, so the file never grows past it on disk. On any error the
// partial file is removed. The caller owns the returned Upload.File.
func (in *Ingestor) Ingest(ws *media.Workspace, req *http.Request) (*Upload, error) {
	if req.ContentLength > in.cfg.MaxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, limit is %d", ErrTooLarge, req.ContentLength, in.cfg.MaxBytes)
	}

	mediaType, params, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" || params["boundary"] == "" {
		return nil, fmt.Errorf("%w: expected multipart/form-data body", ErrInvalidUpload)
	}

	body := &limitedReader{ctx: req.Context(), r: req.Body, max: in.cfg.MaxBytes}
	mr := multipart.NewReader(body, params["boundary"])

	up, err := in.readParts(req.Context(), mr, body, ws)
	if err != nil {
		if up != nil {
			_ = up.File.Release()
		}
		return nil, err
	}
	in.cfg.Logger.Info("upload received",
		"op", ws.ID(), "filename", up.Filename, "content_type", up.ContentType, "bytes", up.Size)
	return up, nil
}

// readParts walks the multipart body. A non-nil Upload is returned alongside
// an error whenever a file was created, so the caller can release it.
func (in *Ingestor) readParts(ctx context.Context, mr *multipart.Reader, body *limitedReader, ws *media.Workspace) (*Upload, error) {
	var up *Upload
	fields := make(map[string]string)

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return up, in.streamErr(ctx, body, err)
		}

		if part.FileName() == "" {
			value, err := in.readField(part)
			_ = part.Close()
			if err != nil {
				return up, in.streamErr(ctx, body, err)
			}
			fields[part.FormName()] = value
			continue
		}

		// Rejected parts are not closed: Close would drain them.
		if up != nil {
			return up, fmt.Errorf("%w: more than one file part", ErrInvalidUpload)
		}

		ct := part.Header.Get("Content-Type")
		kind, ok := in.accept(ct)
		if !ok {
			return nil, fmt.Errorf("%w: %q (accepted: %s)", ErrInvalidType, ct, in.accepted())
		}

		up = &Upload{
			File:        media.NewHandle(ws.Path("upload"+extension(part.FileName())), kind),
			Filename:    filepath.Base(part.FileName()),
			ContentType: ct,
		}
		up.Size, err = writeFile(up.File.Path, part)
		_ = part.Close()
		if err != nil {
			return up, in.streamErr(ctx, body, err)
		}
	}

	if up == nil {
		return nil, fmt.Errorf("%w: no file part", ErrInvalidUpload)
	}
	if up.Size == 0 {
		return up, fmt.Errorf("%w: file part is empty", ErrInvalidUpload)
	}
	up.Fields = fields
	return up, nil
}

// accept reports whether ct starts with an allowed prefix and returns its kind.
func (in *Ingestor) accept(ct string) (media.Kind, bool) {
	ct = strings.ToLower(strings.TrimSpace(ct))
	for _, prefix := range in.cfg.AllowedTypes {
		if strings.HasPrefix(ct, strings.ToLower(prefix)) {
			return media.KindFromMIME(ct)
		}
	}
	return "", false
}

// accepted lists the allowed prefixes as "video/*, audio/*".
func (in *Ingestor) accepted() string {
	names := make([]string, len(in.cfg.AllowedTypes))
	for i, prefix := range in.cfg.AllowedTypes {
		names[i] = prefix + "*"
	}
	return strings.Join(names, ", ")
}

// readField reads a text part up to MaxFieldBytes.
func (in *Ingestor) readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, in.cfg.MaxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > in.cfg.MaxFieldBytes {
		return "", fmt.Errorf("%w: field %q exceeds %d bytes", ErrTooLarge, part.FormName(), in.cfg.MaxFieldBytes)
	}
	return string(data), nil
}

// streamErr classifies a failure while reading the body.
func (in *Ingestor) streamErr(ctx context.Context, body *limitedReader, err error) error {
	switch {
	case body.exceeded:
		return fmt.Errorf("%w: body exceeds %d bytes", ErrTooLarge, in.cfg.MaxBytes)
	case errors.Is(err, ErrTooLarge):
		return err
	case ctx.Err() != nil:
		return ctx.Err()
	default:
		return fmt.Errorf("%w: %w", ErrStream, err)
	}
}

// writeFile copies r into a new file at path.
func writeFile(path string, r io.Reader) (int64, error) {
	// #nosec G304 -- path is built by the workspace, not taken from the client
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, uploadFilePerm)
	if err != nil {
		return 0, err
	}
	n, err := io.CopyBuffer(f, r, make([]byte, copyBufferSize))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

// extension returns the client file's extension if it looks sane, else ".bin".
func extension(filename string) string {
	ext := filepath.Ext(filepath.Base(filename))
	if !safeExt.MatchString(ext) {
		return ".bin"
	}
	return strings.ToLower(ext)
}
