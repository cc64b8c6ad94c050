package qr

import (
	"errors"

	"github.com/skip2/go-qrcode"

	"qr-ticketing/internal/models"
)

const (
	MinImageSize = 64
	MaxImageSize = 1024
)

var ErrEmptyPayload = errors.New("qr payload is empty")

// QRGenerator renders ticket payloads as PNG images. The payload is encoded
// verbatim: scanning the image yields exactly Ticket.QRCode.
type QRGenerator struct {
	size int
}

func NewQRGenerator(size int) *QRGenerator {
	return &QRGenerator{size: clampSize(size)}
}

// GenerateTicketQR renders the ticket payload at the default size.
func (q *QRGenerator) GenerateTicketQR(ticket models.Ticket) ([]byte, error) {
	return q.Generate(ticket.QRCode, q.size)
}

// Generate renders payload as a size×size PNG. A size of 0 uses the default.
func (q *QRGenerator) Generate(payload string, size int) ([]byte, error) {
	if payload == "" {
		return nil, ErrEmptyPayload
	}
	if size == 0 {
		size = q.size
	}
	return qrcode.Encode(payload, qrcode.Medium, clampSize(size))
}

func clampSize(size int) int {
	switch {
	case size <= 0:
		return 256
	case size < MinImageSize:
		return MinImageSize
	case size > MaxImageSize:
		return MaxImageSize
	}
	return size
}
