package links

import (
	"context"
	"errors"

	"github.com/flanksource/commons/logger"
	"gorm.io/gorm"

	"github.com/trafficportal/tpls/pkg/tpls/api"
	"github.com/trafficportal/tpls/pkg/tpls/models"
	"github.com/trafficportal/tpls/pkg/tpls/portal"
	"github.com/trafficportal/tpls/pkg/tpls/validate"
)

// WarningLocalPersist is returned alongside a link when the portal created
// it but the local mirror write failed. The remote link exists, so this is
// never a hard failure.
const WarningLocalPersist = "link created on Traffic Portal but the local mirror write failed"

// PortalClient is the part of the portal API the service depends on.
type PortalClient interface {
	CheckAvailability(ctx context.Context, key, domain string) (*portal.AvailabilityResult, error)
	CreateLink(ctx context.Context, request portal.CreateRequest) (*portal.CreateResponse, error)
}

// Service orchestrates the link lifecycle: validate, check availability,
// create on the portal, mirror locally. Listing and management operations
// touch only the local mirror.
type Service struct {
	db     *gorm.DB
	portal PortalClient
}

// NewService creates a link service around the local store and portal client.
func NewService(db *gorm.DB, portalClient PortalClient) *Service {
	return &Service{db: db, portal: portalClient}
}

// CheckAvailability validates the key format and asks the portal whether
// the key is free under domain.
func (s *Service) CheckAvailability(ctx context.Context, key, domain string) (*portal.AvailabilityResult, error) {
	if !validate.KeyFormat(key) {
		return nil, api.Errorf(api.EINVALID, "Invalid key format")
	}

	return s.portal.CheckAvailability(ctx, key, validate.Domain(domain))
}

// Create runs the creation workflow for owner. The owner must already
// hold a portal token; none is ever minted here. On success the returned
// warning is empty; when the portal accepted the link but the mirror
// write failed, the link is returned together with WarningLocalPersist.
func (s *Service) Create(ctx context.Context, owner models.User, key, domain, destination string) (*models.Link, string, error) {
	if !validate.KeyFormat(key) {
		return nil, "", api.Errorf(api.EINVALID, "Invalid key format")
	}
	if !validate.URL(destination) {
		return nil, "", api.Errorf(api.EINVALID, "Invalid destination URL")
	}
	if !owner.HasPortalToken() {
		return nil, "", api.Errorf(api.EUNAUTHORIZED, "User not authenticated with Traffic Portal. Please register or link your account.")
	}
	domain = validate.Domain(domain)

	availability, err := s.portal.CheckAvailability(ctx, key, domain)
	if err != nil {
		return nil, "", err
	}
	if !availability.Available {
		message := availability.Message
		if message == "" {
			message = "This key is already taken"
		}
		return nil, "", api.Errorf(api.ECONFLICT, "%s", message)
	}

	response, err := s.portal.CreateLink(ctx, portal.CreateRequest{
		OwnerID:     owner.ID,
		OwnerToken:  owner.PortalToken,
		Key:         key,
		Domain:      domain,
		Destination: destination,
		Status:      string(models.LinkStatusActive),
	})
	if err != nil {
		return nil, "", err
	}
	if !response.Success {
		message := response.Message
		if message == "" {
			message = "API request failed"
		}
		return nil, "", api.Errorf(api.EUPSTREAM, "%s", message)
	}

	link := models.Link{
		OwnerID:     owner.ID,
		Key:         key,
		Destination: destination,
		Domain:      domain,
		Status:      models.LinkStatusActive,
	}

	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		// The portal already created the link; surface the mirror failure
		// as a warning, not an error.
		logger.Errorf("local mirror write failed for owner=%d tpkey=%s: %v", owner.ID, key, err)
		return &link, WarningLocalPersist, nil
	}

	return &link, "", nil
}

// List returns one page of the owner's links from the local mirror,
// newest first with ids breaking ties for stable paging, plus the total
// number of links the owner has.
func (s *Service) List(ctx context.Context, ownerID uint, page, pageSize int) ([]models.Link, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Link{}).Where("owner_id = ?", ownerID).Count(&total).Error; err != nil {
		return nil, 0, api.Wrapf(api.EINTERNAL, err, "failed to count links")
	}

	var links []models.Link
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC, id ASC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&links).Error
	if err != nil {
		return nil, 0, api.Wrapf(api.EINTERNAL, err, "failed to fetch links")
	}

	return links, total, nil
}

// UpdateDestination points an existing link at a new destination URL. The
// key itself is immutable.
func (s *Service) UpdateDestination(ctx context.Context, id, ownerID uint, destination string) (*models.Link, error) {
	if !validate.URL(destination) {
		return nil, api.Errorf(api.EINVALID, "Invalid destination URL")
	}

	link, err := s.ownedLink(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(link).Update("destination", destination).Error; err != nil {
		return nil, api.Wrapf(api.EINTERNAL, err, "failed to update link")
	}

	return link, nil
}

// ToggleStatus flips a link between active and inactive.
func (s *Service) ToggleStatus(ctx context.Context, id, ownerID uint) (*models.Link, error) {
	link, err := s.ownedLink(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(link).Update("status", link.Status.Toggle()).Error; err != nil {
		return nil, api.Wrapf(api.EINTERNAL, err, "failed to update link status")
	}

	return link, nil
}

// Delete removes the owner's link from the local mirror. A missing row or
// an ownership mismatch both report false; neither is distinguishable to
// the caller.
func (s *Service) Delete(ctx context.Context, id, ownerID uint) (bool, error) {
	result := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).Delete(&models.Link{})
	if result.Error != nil {
		return false, api.Wrapf(api.EINTERNAL, result.Error, "failed to delete link")
	}

	return result.RowsAffected > 0, nil
}

// ownedLink fetches a link by id scoped to its owner. Rows owned by
// someone else surface as not found.
func (s *Service) ownedLink(ctx context.Context, id, ownerID uint) (*models.Link, error) {
	var link models.Link
	err := s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, api.Errorf(api.ENOTFOUND, "Link not found")
		}
		return nil, api.Wrapf(api.EINTERNAL, err, "failed to fetch link")
	}
	return &link, nil
}
