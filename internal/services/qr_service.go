package services

import (
	"context"
	_ "embed"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

//go:embed assets/qr_fallback.png
var qrFallbackPNG []byte

const qrContentType = "image/png"

type qrService struct {
	client   *resty.Client
	endpoint string
	size     string
	logger   *slog.Logger
}

// NewQRService renders QR codes through an external image endpoint
func NewQRService(endpoint, size string, timeout time.Duration, logger *slog.Logger) QRService {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "image/png")
	return &qrService{
		client:   client,
		endpoint: endpoint,
		size:     size,
		logger:   logger,
	}
}

// Image fetches the QR image of qrID. Any upstream failure yields the local fallback image.
func (s *qrService) Image(ctx context.Context, qrID string) (*QRImage, error) {
	qrID = strings.TrimSpace(qrID)
	if qrID == "" {
		return nil, NewValidationError("qr_id", "is required", qrID)
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"size": s.size,
			"data": qrID,
		}).
		Get(s.endpoint)
	if err != nil {
		s.logger.Warn("QR endpoint unreachable, using fallback", "error", err)
		return fallbackQR(), nil
	}
	if resp.StatusCode() != http.StatusOK || len(resp.Body()) == 0 {
		s.logger.Warn("QR endpoint failed, using fallback", "status", resp.StatusCode())
		return fallbackQR(), nil
	}

	contentType := resp.Header().Get("Content-Type")
	if contentType == "" {
		contentType = qrContentType
	}
	return &QRImage{Data: resp.Body(), ContentType: contentType}, nil
}

func fallbackQR() *QRImage {
	return &QRImage{Data: qrFallbackPNG, ContentType: qrContentType, Fallback: true}
}
