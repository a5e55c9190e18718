package backend

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
)

// File is one binary part of a multipart form.
type File struct {
	Field       string
	Name        string
	ContentType string
	Content     io.Reader
}

type field struct {
	name, value string
}

// Form is a multipart payload: text fields plus file parts.
type Form struct {
	fields []field
	files  []File
}

// NewForm returns an empty form.
func NewForm() *Form {
	return &Form{}
}

// Set appends a text field.
func (f *Form) Set(name, value string) *Form {
	f.fields = append(f.fields, field{name: name, value: value})
	return f
}

// AddFile appends a file part.
func (f *Form) AddFile(file File) *Form {
	f.files = append(f.files, file)
	return f
}

// HasFiles reports whether the form carries any file part.
func (f *Form) HasFiles() bool {
	return len(f.files) > 0
}

// Encode renders the form and returns its body and content type.
func (f *Form) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, fl := range f.fields {
		if err := w.WriteField(fl.name, fl.value); err != nil {
			return nil, "", fmt.Errorf("failed to write field %s: %w", fl.name, err)
		}
	}
	for _, file := range f.files {
		part, err := w.CreatePart(fileHeader(file))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create part %s: %w", file.Field, err)
		}
		if _, err := io.Copy(part, file.Content); err != nil {
			return nil, "", fmt.Errorf("failed to copy part %s: %w", file.Field, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func fileHeader(file File) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(file.Field), quoteEscaper.Replace(file.Name)))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)
	return h
}
