package certificates

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"
)

var certificateTmpl = template.Must(template.New("certificate").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8" />
  <title>Certificate {{.Number}}</title>
  <style>
    body { font-family: Georgia, serif; text-align: center; padding: 48px; }
    .frame { border: 6px double #8a5a00; padding: 40px; }
    h1 { letter-spacing: 2px; }
  </style>
</head>
<body>
  <div class="frame">
    <h1>Certificate of {{.Title}}</h1>
    <p>This certifies that</p>
    <h2>{{.Name}}</h2>
    <p>contributed <strong>NPR {{.Amount}}</strong> on {{.Date}}.</p>
    <p>Certificate no. {{.Number}}</p>
  </div>
</body>
</html>`))

// Certificate is the input of Issue.
type Certificate struct {
	PaymentID int64
	Name      string
	Amount    string
	Purpose   string
	IssuedAt  time.Time
}

// Issuer renders and uploads donation and membership certificates.
type Issuer struct {
	numbers  *NumberGenerator
	uploader Uploader
}

func NewIssuer(numbers *NumberGenerator, up Uploader) *Issuer {
	return &Issuer{numbers: numbers, uploader: up}
}

// Issue returns the public URL of the uploaded certificate.
func (i *Issuer) Issue(ctx context.Context, c Certificate) (string, error) {
	number, err := i.numbers.Generate(c.PaymentID)
	if err != nil {
		return "", err
	}

	title := "Appreciation"
	if c.Purpose == "membership" {
		title = "Membership"
	}

	var buf bytes.Buffer
	if err := certificateTmpl.Execute(&buf, map[string]any{
		"Title":  title,
		"Name":   c.Name,
		"Amount": c.Amount,
		"Date":   c.IssuedAt.Format("02 January 2006"),
		"Number": number,
	}); err != nil {
		return "", fmt.Errorf("render certificate: %w", err)
	}

	return i.uploader.Upload(ctx, &buf, number)
}
