package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"dm-service/internal/apperrors"
	"dm-service/internal/ephemeral"
	"dm-service/internal/models"
	"dm-service/internal/observability"
)

// SnapViewer governs opening and consuming snaps.
type SnapViewer struct {
	*core
	controller *ephemeral.Controller
}

func newSnapViewer(c *core) *SnapViewer {
	v := &SnapViewer{core: c}
	v.controller = ephemeral.NewController(ephemeral.Options{
		MaxDwell:  c.opts.ViewOnceDwell,
		AfterFunc: c.opts.AfterFunc,
		Now:       c.opts.Now,
	}, v.consumed)
	return v
}

// consumed runs once per viewing session, possibly on a timer goroutine.
func (v *SnapViewer) consumed(s ephemeral.Session, trigger ephemeral.Trigger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := v.SnapViews.MarkSnapViewed(ctx, s.MessageID, s.ViewerID, v.now().UTC()); err != nil {
		v.Log.Error("record snap view failed",
			zap.String("message_id", s.MessageID),
			zap.String("viewer_id", s.ViewerID),
			zap.Error(err),
		)
	}
	observability.IncSnapConsumed(string(trigger))
	v.broadcast(models.ChatEvent{Type: models.EventSnapConsumed, ConversationID: s.ConversationID, MessageID: s.MessageID, UserID: s.ViewerID})
}

// load returns the snap message after checking viewerID may see it at all.
func (v *SnapViewer) load(ctx context.Context, messageID, viewerID string) (models.Message, error) {
	msg, err := v.Messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, translate(err)
	}
	if msg.Hidden {
		return models.Message{}, apperrors.ErrMessageAbsent
	}
	if msg.Format != models.FormatSnap || msg.ViewMode == nil || msg.ExpiresAt == nil {
		return models.Message{}, apperrors.ErrNotSnap
	}
	if _, err := v.participantConversation(ctx, msg.ConversationID, viewerID); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// Open starts a viewing session and returns where to fetch the media.
func (v *SnapViewer) Open(ctx context.Context, messageID, viewerID string) (models.SnapAccess, error) {
	msg, err := v.load(ctx, messageID, viewerID)
	if err != nil {
		return models.SnapAccess{}, err
	}
	if msg.SenderID == viewerID {
		return models.SnapAccess{}, apperrors.ErrOwnSnap
	}
	mode := *msg.ViewMode
	expiresAt := *msg.ExpiresAt
	if !v.now().Before(expiresAt) {
		return models.SnapAccess{}, apperrors.ErrSnapExpired
	}
	if mode == models.ViewOnce {
		if _, open := v.controller.Viewing(messageID, viewerID); !open {
			viewed, err := v.SnapViews.HasViewedSnap(ctx, messageID, viewerID)
			if err != nil {
				return models.SnapAccess{}, translate(err)
			}
			if viewed {
				return models.SnapAccess{}, apperrors.ErrSnapConsumed
			}
		}
	}

	url := msg.Content
	if msg.BlobRef != nil && *msg.BlobRef != "" && v.Blobs != nil {
		if url, err = v.Blobs.URL(ctx, *msg.BlobRef); err != nil {
			return models.SnapAccess{}, apperrors.Internal("snap media unavailable", err)
		}
	}

	view := ephemeral.View{ConversationID: msg.ConversationID, Mode: mode, ExpiresAt: expiresAt}
	if msg.DurationSecs != nil {
		view.Duration = time.Duration(*msg.DurationSecs) * time.Second
	}
	session, err := v.controller.Start(messageID, viewerID, view)
	switch {
	case errors.Is(err, ephemeral.ErrExpired):
		return models.SnapAccess{}, apperrors.ErrSnapExpired
	case errors.Is(err, ephemeral.ErrConsumed):
		return models.SnapAccess{}, apperrors.ErrSnapConsumed
	case err != nil:
		return models.SnapAccess{}, apperrors.Internal("open snap", err)
	}

	return models.SnapAccess{
		MessageID:        messageID,
		URL:              url,
		ViewMode:         mode,
		RemainingSeconds: session.Remaining(v.now()).Seconds(),
		ExpiresAt:        expiresAt,
	}, nil
}

// Close ends the viewer's session. It reports whether this call consumed the snap.
func (v *SnapViewer) Close(ctx context.Context, messageID, viewerID string) (bool, error) {
	if _, err := v.load(ctx, messageID, viewerID); err != nil {
		return false, err
	}
	return v.controller.Close(messageID, viewerID), nil
}

// Status reports the viewer's state for a snap.
func (v *SnapViewer) Status(ctx context.Context, messageID, viewerID string) (models.SnapStatus, error) {
	msg, err := v.load(ctx, messageID, viewerID)
	if err != nil {
		return models.SnapStatus{}, err
	}
	status := models.SnapStatus{MessageID: messageID, ViewMode: *msg.ViewMode, ExpiresAt: *msg.ExpiresAt}

	switch _, open := v.controller.Viewing(messageID, viewerID); {
	case open:
		status.State = models.SnapViewing
	case !v.now().Before(*msg.ExpiresAt):
		status.State = models.SnapExpired
	default:
		viewed, err := v.SnapViews.HasViewedSnap(ctx, messageID, viewerID)
		if err != nil {
			return models.SnapStatus{}, translate(err)
		}
		status.State = models.SnapUnopened
		if viewed {
			status.State = models.SnapConsumed
		}
	}
	return status, nil
}
