package usecase

import (
	"log/slog"

	"github.com/fairyhunter13/video-gen-api/internal/adapter/store/memstore"
	"github.com/fairyhunter13/video-gen-api/internal/domain"
)

// StreamURLTTLSeconds is how long an issued stream URL stays valid.
const StreamURLTTLSeconds = 3600

// VideoService owns video retrieval, streaming and deletion.
type VideoService struct {
	Store *memstore.Store
	Log   *slog.Logger
}

// NewVideoService constructs a VideoService.
func NewVideoService(store *memstore.Store, log *slog.Logger) *VideoService {
	return &VideoService{Store: store, Log: log}
}

// Get returns a video after an ownership check.
func (s *VideoService) Get(videoID string, user domain.User) (domain.Video, error) {
	video, ok := s.Store.Videos.Get(videoID)
	if !ok {
		return domain.Video{}, domain.ErrVideoNotFound(videoID)
	}
	if video.OwnerID != user.ID {
		return domain.Video{}, domain.ErrPermissionDenied(
			"You don't have permission to access this video",
			map[string]any{"video_id": videoID},
		)
	}
	return video, nil
}

// List returns one page of the user's videos, newest first, optionally
// filtered by status.
func (s *VideoService) List(user domain.User, page, perPage int, status domain.VideoStatus) ([]domain.Video, int) {
	filter := func(v domain.Video) bool {
		if v.OwnerID != user.ID {
			return false
		}
		if status != "" && v.Status != status {
			return false
		}
		return true
	}
	newestFirst := func(a, b domain.Video) bool { return a.CreatedAt.After(b.CreatedAt) }
	return s.Store.Videos.List(filter, newestFirst, (page-1)*perPage, perPage)
}

// StreamURL returns the playback URL of a ready video. Videos that are not
// ready are reported as not found rather than leaking their state.
func (s *VideoService) StreamURL(videoID string, user domain.User) (string, error) {
	video, err := s.Get(videoID, user)
	if err != nil {
		return "", err
	}
	if video.Status != domain.VideoReady || video.URL == "" {
		return "", domain.ErrVideoNotFound(videoID)
	}
	return video.URL, nil
}

// Delete removes a video after an ownership check.
func (s *VideoService) Delete(videoID string, user domain.User) error {
	if _, err := s.Get(videoID, user); err != nil {
		return err
	}
	s.Store.Videos.Delete(videoID)
	s.Log.Info("video deleted", slog.String("video_id", videoID), slog.String("user_id", user.ID))
	return nil
}
