package service

import (
	"context"

	"ride-pool/internal/domain/ride"
	"ride-pool/internal/ports"
)

// unknownName is the fallback when the directory cannot resolve an actor.
const unknownName = "Unknown"

// toView decorates domain rides with directory profiles. One batched lookup
// covers every participant in the batch; a directory failure degrades to
// the fallback name instead of failing the read.
func (service *poolService) toViews(ctx context.Context, rides []*ride.Ride) []*ports.RideView {
	ids := make(map[string]struct{})
	for _, r := range rides {
		ids[r.CreatorID] = struct{}{}
		for _, id := range r.Requests {
			ids[id] = struct{}{}
		}
		for _, id := range r.ConfirmedUsers {
			ids[id] = struct{}{}
		}
	}

	lookup := make([]string, 0, len(ids))
	for id := range ids {
		lookup = append(lookup, id)
	}

	profiles, err := service.directory.Lookup(ctx, lookup)
	if err != nil {
		service.logger.Error(ctx, "directory_lookup_failed", "Failed to resolve participant profiles", err, map[string]any{
			"count": len(lookup),
		})
		profiles = nil
	}

	views := make([]*ports.RideView, 0, len(rides))
	for _, r := range rides {
		views = append(views, buildView(r, profiles))
	}
	return views
}

func (service *poolService) toView(ctx context.Context, r *ride.Ride) *ports.RideView {
	return service.toViews(ctx, []*ride.Ride{r})[0]
}

func buildView(r *ride.Ride, profiles map[string]ports.Profile) *ports.RideView {
	return &ports.RideView{
		ID:              r.ID,
		CreatorID:       r.CreatorID,
		Creator:         participant(r.CreatorID, profiles),
		Realm:           r.Realm,
		FromLocation:    r.FromLocation,
		ToLocation:      r.ToLocation,
		DepartAt:        r.DepartAt,
		TotalSeats:      r.TotalSeats,
		AvailableSeats:  r.AvailableSeats,
		PreferredGender: r.PreferredGender.String(),
		Status:          r.Status.String(),
		AllowChat:       r.AllowChat,
		Requests:        participants(r.Requests, profiles),
		ConfirmedUsers:  participants(r.ConfirmedUsers, profiles),
		ExpiresAt:       r.ExpiresAt,
		CreatedAt:       r.CreatedAt,
	}
}

func participants(ids []string, profiles map[string]ports.Profile) []ports.Participant {
	out := make([]ports.Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, participant(id, profiles))
	}
	return out
}

func participant(id string, profiles map[string]ports.Profile) ports.Participant {
	p, ok := profiles[id]
	if !ok {
		return ports.Participant{ID: id, Name: unknownName}
	}
	return ports.Participant{
		ID:         id,
		Name:       p.Name,
		Email:      p.Email,
		Phone:      p.Phone,
		Department: p.Department,
		Year:       p.Year,
	}
}
