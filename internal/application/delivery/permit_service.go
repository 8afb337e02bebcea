package delivery

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/homestead/backend/internal/application/document"
	"github.com/homestead/backend/internal/domain/delivery"
	"github.com/homestead/backend/internal/domain/shared"
	"go.uber.org/zap"
)

var permitDocumentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
}

// ErrStorageNotConfigured is returned by document links when no bucket is wired
var ErrStorageNotConfigured = shared.NewDomainError("INTEGRATION_NOT_CONFIGURED", "Document storage is not configured")

// CreatePermit opens a pending permit for a delivery
func (s *Service) CreatePermit(ctx context.Context, deliveryID uuid.UUID, in PermitInput) (*PermitDTO, error) {
	d, err := s.repo.FindByID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if d.Status.IsTerminal() {
		return nil, shared.NewDomainError("INVALID_STATE", "Delivery is closed")
	}
	p, err := delivery.NewPermit(d.ID, in.Jurisdiction, in.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.permits.Save(ctx, p); err != nil {
		return nil, err
	}
	dto := toPermitDTO(p)
	return &dto, nil
}

// ListPermits returns the permits of a delivery the actor may see
func (s *Service) ListPermits(ctx context.Context, deliveryID uuid.UUID, a Actor) ([]PermitDTO, error) {
	if _, err := s.load(ctx, deliveryID, a); err != nil {
		return nil, err
	}
	rows, err := s.permits.FindByDeliveryID(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	out := make([]PermitDTO, len(rows))
	for i, p := range rows {
		out[i] = toPermitDTO(p)
	}
	return out, nil
}

// ApprovePermit records the issued permit number and validity window
func (s *Service) ApprovePermit(ctx context.Context, deliveryID, permitID uuid.UUID, in ApprovePermitInput) (*PermitDTO, error) {
	return s.changePermit(ctx, deliveryID, permitID, func(p *delivery.Permit) error {
		return p.Approve(in.PermitNumber, in.IssuedAt, in.ExpiresAt)
	})
}

// RejectPermit records a denied application
func (s *Service) RejectPermit(ctx context.Context, deliveryID, permitID uuid.UUID, in ReasonInput) (*PermitDTO, error) {
	return s.changePermit(ctx, deliveryID, permitID, func(p *delivery.Permit) error {
		return p.Reject(in.Reason)
	})
}

// PermitUploadURL presigns a PUT for the permit scan and records its key
func (s *Service) PermitUploadURL(ctx context.Context, deliveryID, permitID uuid.UUID, in UploadInput) (*document.PresignedURL, error) {
	if s.storage == nil {
		return nil, ErrStorageNotConfigured
	}
	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if !permitDocumentTypes[contentType] {
		return nil, shared.NewDomainError("INVALID_CONTENT_TYPE", "Permit documents must be PDF, JPEG or PNG")
	}
	var url document.PresignedURL
	_, err := s.changePermit(ctx, deliveryID, permitID, func(p *delivery.Permit) error {
		key := document.PermitDocumentKey(deliveryID, permitID, in.FileName)
		presigned, err := s.storage.PresignUpload(ctx, key, contentType, s.opts.PresignTTL)
		if err != nil {
			return err
		}
		url = presigned
		p.AttachDocument(key)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &url, nil
}

// PermitDownloadURL presigns a GET for the stored permit scan
func (s *Service) PermitDownloadURL(ctx context.Context, deliveryID, permitID uuid.UUID, a Actor) (*document.PresignedURL, error) {
	if s.storage == nil {
		return nil, ErrStorageNotConfigured
	}
	if _, err := s.load(ctx, deliveryID, a); err != nil {
		return nil, err
	}
	p, err := s.permitOf(ctx, deliveryID, permitID)
	if err != nil {
		return nil, err
	}
	if p.DocumentKey == "" || !document.IsPermitDocumentKey(p.DocumentKey, deliveryID, permitID) {
		return nil, shared.NewDomainError("NO_DOCUMENT", "Permit has no document")
	}
	url, err := s.storage.PresignDownload(ctx, p.DocumentKey, s.opts.PresignTTL)
	if err != nil {
		return nil, err
	}
	url.Method = http.MethodGet
	return &url, nil
}

func (s *Service) permitOf(ctx context.Context, deliveryID, permitID uuid.UUID) (*delivery.Permit, error) {
	p, err := s.permits.FindByID(ctx, permitID)
	if err != nil {
		return nil, err
	}
	if p.DeliveryID != deliveryID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (s *Service) changePermit(ctx context.Context, deliveryID, permitID uuid.UUID, fn func(*delivery.Permit) error) (*PermitDTO, error) {
	p, err := s.permitOf(ctx, deliveryID, permitID)
	if err != nil {
		return nil, err
	}
	from := p.Status
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.permits.Save(ctx, p); err != nil {
		return nil, err
	}
	if from != p.Status {
		s.logger.Info("Permit status changed",
			zap.String("permit_id", p.ID.String()),
			zap.String("jurisdiction", p.Jurisdiction),
			zap.String("to", string(p.Status)))
	}
	dto := toPermitDTO(p)
	return &dto, nil
}
