package access

import (
	"context"
	"errors"

	"access-platform/internal/biometric"
	"access-platform/internal/credential"
	"access-platform/internal/identity"
	"access-platform/internal/ledger"
)

// FaceRequest is one biometric presentation. The descriptor is computed on
// the kiosk; this service only consumes the match.
type FaceRequest struct {
	Descriptor    []float32
	Channel       ledger.DeviceChannel
	AccessPointID string
	Image         string
	Latitude      string
	Longitude     string
	CreatedBy     string
}

// ValidateFace matches the descriptor against the enrolled visitors and, on
// a match, records the next toggle event by alternation. Technical matcher
// failures are recorded and reported distinctly from no-match denials.
func (s *Service) ValidateFace(ctx context.Context, req FaceRequest) (Outcome, error) {
	reject := func(comment string) (Outcome, error) {
		out, err := s.reject(ctx, ledger.Scope{}, Request{
			Channel:   req.Channel,
			Image:     req.Image,
			CreatedBy: req.CreatedBy,
		}, comment)
		return out, err
	}

	if len(req.Descriptor) == 0 {
		return reject(biometric.MsgNoFace)
	}

	enrolled, err := s.visitors.VisitorsWithDescriptors(ctx)
	if err != nil {
		return Outcome{}, err
	}
	if len(enrolled) == 0 {
		return reject(biometric.MsgNoStoredDescriptors)
	}

	candidates := make([]biometric.Candidate, 0, len(enrolled))
	for _, v := range enrolled {
		candidates = append(candidates, biometric.Candidate{
			VisitorID:  v.ID,
			Descriptor: v.Descriptor,
		})
	}

	match, err := s.matcher.Match(ctx, req.Descriptor, candidates)
	if errors.Is(err, biometric.ErrMatcherUnavailable) {
		s.log.Error("biometric matcher unavailable")
		return reject(biometric.MsgMatcherUnavailable)
	}
	if err != nil {
		return Outcome{}, err
	}
	if !match.Found || match.Similarity < s.minSimilarity {
		return reject(biometric.MsgNoMatch)
	}

	vis, err := s.visitors.VisitorByID(ctx, match.VisitorID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return reject(biometric.MsgNoMatch)
		}
		return Outcome{}, err
	}
	if !vis.Active {
		return reject(biometric.MsgSubjectInactive)
	}

	scope := ledger.VisitorScope(vis.ID)
	next, err := s.engine.NextType(ctx, scope, "")
	if err != nil {
		return Outcome{}, err
	}
	id, err := s.events.Append(ctx, ledger.Event{
		VisitorID:     vis.ID,
		AccessPointID: req.AccessPointID,
		Type:          next,
		Channel:       req.Channel,
		Similarity:    match.Similarity,
		Image:         req.Image,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		CreatedBy:     req.CreatedBy,
	})
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{
		Allowed:      true,
		CanAccess:    true,
		IdentityKind: credential.IdentityVisitor,
		IdentityRef:  vis.ID,
		Name:         vis.Name,
		EventID:      id,
		EventType:    next,
		Similarity:   match.Similarity,
	}, nil
}
