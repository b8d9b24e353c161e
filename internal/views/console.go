package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"anoa.com/isfportal/internal/session"
	"anoa.com/isfportal/pkg/platform"
	"anoa.com/isfportal/pkg/validator"
)

const (
	DefaultEventImage = "https://picsum.photos/seed/default/600/400"
	EventImagesBucket = "event-images"
	ToastDuration     = 3 * time.Second
)

type Toast struct {
	Message  string
	Duration time.Duration
}

// WriteError is a failed upload or insert. Message is the provider's text.
type WriteError struct {
	Op      string
	Message string
	Err     error
}

func (e *WriteError) Error() string {
	return e.Op + ": " + e.Message
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

func writeError(op string, err error) error {
	msg := err.Error()
	var apiErr *platform.Error
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	return &WriteError{Op: op, Message: msg, Err: err}
}

// FormError is a client-side validation failure; nothing was sent.
type FormError struct {
	Message string
}

func (e *FormError) Error() string {
	return e.Message
}

type Writer interface {
	Insert(ctx context.Context, table string, row interface{}) error
}

// Uploader stores r and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error)
}

type SessionReader interface {
	Session() session.Session
}

type platformWriter struct {
	client *platform.Client
}

func NewPlatformWriter(client *platform.Client) Writer {
	return &platformWriter{client: client}
}

func (w *platformWriter) Insert(ctx context.Context, table string, row interface{}) error {
	return w.client.From(table).Insert(ctx, []interface{}{row}, nil)
}

type platformUploader struct {
	client *platform.Client
}

func NewPlatformUploader(client *platform.Client) Uploader {
	return &platformUploader{client: client}
}

func (u *platformUploader) Upload(ctx context.Context, bucket, objectPath string, r io.Reader) (string, error) {
	res, err := u.client.Storage(bucket).Upload(ctx, objectPath, r)
	if err != nil {
		return "", err
	}
	return res.PublicURL, nil
}

type EventForm struct {
	Title       string `validate:"required"`
	Date        string `validate:"required"`
	Description string `validate:"required"`
	// Image is optional; ImageName is used for the stored object name.
	Image     io.Reader
	ImageName string
}

type AnnouncementForm struct {
	Title   string `validate:"required"`
	Content string `validate:"required"`
}

// Console performs the admin writes.
type Console struct {
	writer   Writer
	uploader Uploader
	store    SessionReader
	now      func() time.Time
}

func NewConsole(writer Writer, uploader Uploader, store SessionReader) *Console {
	return &Console{
		writer:   writer,
		uploader: uploader,
		store:    store,
		now:      time.Now,
	}
}

func (c *Console) AddEvent(ctx context.Context, form EventForm) (Toast, error) {
	if err := validator.Struct(form); err != nil {
		return Toast{}, &FormError{Message: validator.FormatValidationError(err)}
	}

	imageURL := DefaultEventImage
	if form.Image != nil {
		name := fmt.Sprintf("%d_%s", c.now().UnixMilli(), filepath.Base(form.ImageName))
		url, err := c.uploader.Upload(ctx, EventImagesBucket, name, form.Image)
		if err != nil {
			return Toast{}, writeError("Storage Error", err)
		}
		imageURL = url
	}

	row := map[string]interface{}{
		"title":       form.Title,
		"description": form.Description,
		"date":        form.Date,
		"image_url":   imageURL,
	}
	if err := c.writer.Insert(ctx, EventsPolicy.Table, row); err != nil {
		return Toast{}, writeError("Error adding event", err)
	}
	return Toast{Message: "Event added successfully!", Duration: ToastDuration}, nil
}

func (c *Console) PostAnnouncement(ctx context.Context, form AnnouncementForm) (Toast, error) {
	if err := validator.Struct(form); err != nil {
		return Toast{}, &FormError{Message: validator.FormatValidationError(err)}
	}

	author := "Admin"
	if s := c.store.Session(); s.Identity != nil && s.Identity.Name != "" {
		author = s.Identity.Name
	}

	row := map[string]interface{}{
		"title":   form.Title,
		"content": form.Content,
		"author":  author,
		"date":    c.now().UTC().Format(time.RFC3339),
	}
	if err := c.writer.Insert(ctx, AnnouncementsPolicy.Table, row); err != nil {
		return Toast{}, writeError("Error posting announcement", err)
	}
	return Toast{Message: "Announcement posted successfully!", Duration: ToastDuration}, nil
}
