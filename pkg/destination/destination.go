package destination

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/segmentio/events/v2"

	"github.com/segmentio/tableview/pkg/export"
	"github.com/segmentio/tableview/pkg/utils"
)

// Stdout is the destination name that writes to standard output.
const Stdout = "-"

// Destination delivers an export payload somewhere.
type Destination interface {
	Deliver(ctx context.Context, payload export.Payload) error
}

// FromURL parses a destination. Accepted forms are "-" for stdout, a plain
// path, file://path and s3://bucket/key. An empty dest writes the payload's
// own filename into the working directory. A path ending in a slash is a
// directory the payload filename is placed in, and so is an s3 key ending
// in a slash.
func FromURL(dest string) (Destination, error) {
	switch {
	case dest == "":
		return &LocalFile{}, nil
	case dest == Stdout:
		return &Writer{W: os.Stdout}, nil
	case !strings.Contains(dest, "://"):
		return &LocalFile{Path: dest}, nil
	}
	parsed, err := url.Parse(dest)
	if err != nil {
		return nil, errors.Wrap(err, "parsing url")
	}
	switch parsed.Scheme {
	case "s3":
		if parsed.Host == "" {
			return nil, errors.Errorf("missing bucket in %s", dest)
		}
		events.Debug("Using s3 destination bucket=%v", parsed.Host)
		return &S3{Bucket: parsed.Host, Key: parsed.Path}, nil
	case "file":
		path := parsed.Path
		if parsed.Host != "" {
			// file://relative/path
			path = filepath.Join(parsed.Host, path)
		}
		events.Debug("Using local FS destination file=%v", path)
		return &LocalFile{Path: path}, nil
	default:
		return nil, errors.Errorf("Unknown scheme %s", parsed.Scheme)
	}
}

// Writer writes the payload bytes to W.
type Writer struct {
	W io.Writer
}

func (d *Writer) Deliver(ctx context.Context, payload export.Payload) error {
	if _, err := d.W.Write(payload.Data); err != nil {
		return errors.Wrap(err, "write payload")
	}
	return nil
}

// LocalFile writes the payload to Path, replacing any existing file.
type LocalFile struct {
	Path string
}

func (d *LocalFile) Deliver(ctx context.Context, payload export.Payload) error {
	path := d.target(payload)
	if err := utils.EnsureDirForFile(path); err != nil {
		return errors.Wrap(err, "ensure export dir exists")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "opening destination file")
	}
	if _, err = f.Write(payload.Data); err != nil {
		f.Close()
		return errors.Wrap(err, "writing file")
	}
	if err = f.Close(); err != nil {
		return errors.Wrap(err, "closing file")
	}
	events.Log("Wrote %d bytes to %{file}s", len(payload.Data), path)
	return nil
}

func (d *LocalFile) target(payload export.Payload) string {
	switch {
	case d.Path == "":
		return payload.Filename
	case strings.HasSuffix(d.Path, "/"):
		return filepath.Join(d.Path, payload.Filename)
	default:
		return d.Path
	}
}
