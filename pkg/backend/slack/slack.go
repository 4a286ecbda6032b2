// Package slack uploads files to channels and mirrors the workspace user and
// channel directory into storage.
package slack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	goslack "github.com/slack-go/slack"

	"github.com/sameehj/officemcp/pkg/backend"
	"github.com/sameehj/officemcp/pkg/backend/storage"
)

// MaxDownloadBytes caps files fetched from a URL before upload.
const MaxDownloadBytes = 50 << 20

// API is the subset of *goslack.Client the service uses.
type API interface {
	UploadFileV2Context(ctx context.Context, params goslack.UploadFileV2Parameters) (*goslack.FileSummary, error)
	GetUsersContext(ctx context.Context, options ...goslack.GetUsersOption) ([]goslack.User, error)
	GetConversationsContext(ctx context.Context, params *goslack.GetConversationsParameters) ([]goslack.Channel, string, error)
}

// Directory persists synced users and channels.
type Directory interface {
	Users(ctx context.Context, id string) ([]storage.User, error)
	Channels(ctx context.Context, id string) ([]storage.Channel, error)
	UpsertUsers(ctx context.Context, users []storage.User) (int, error)
	UpsertChannels(ctx context.Context, channels []storage.Channel) (int, error)
}

type Service struct {
	api    API
	dir    Directory
	http   *http.Client
	logger *slog.Logger
}

// NewClient builds a slack-go client for token. apiURL overrides the Slack
// endpoint and must end in a slash.
func NewClient(token, apiURL string, httpClient *http.Client) *goslack.Client {
	opts := []goslack.Option{}
	if apiURL != "" {
		opts = append(opts, goslack.OptionAPIURL(apiURL))
	}
	if httpClient != nil {
		opts = append(opts, goslack.OptionHTTPClient(httpClient))
	}
	return goslack.New(token, opts...)
}

// New returns a Service. A nil api means no bot token was configured.
func New(api API, dir Directory, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = backend.NewHTTPClient(0)
	}
	return &Service{api: api, dir: dir, http: httpClient}
}

func (s *Service) SetLogger(logger *slog.Logger) {
	s.logger = logger
}

// Upload is the result of a completed file upload.
type Upload struct {
	OK       bool   `json:"ok"`
	FileID   string `json:"file_id"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	Channel  string `json:"channel"`
	ThreadTS string `json:"thread_ts,omitempty"`
}

// UploadFile sends a local file, or the body of an http(s) URL, to channel.
func (s *Service) UploadFile(ctx context.Context, source, channel, title, ts string) (Upload, error) {
	if s.api == nil {
		return Upload{}, backend.NotConfigured("Slack bot token")
	}
	source, channel, title = strings.TrimSpace(source), strings.TrimSpace(channel), strings.TrimSpace(title)
	if source == "" {
		return Upload{}, backend.Errorf(backend.ErrInvalid, "File path cannot be empty")
	}
	if channel == "" {
		return Upload{}, backend.Errorf(backend.ErrInvalid, "Chat ID cannot be empty")
	}

	var (
		reader   io.Reader
		size     int
		filename string
	)
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		body, err := s.download(ctx, source)
		if err != nil {
			return Upload{}, err
		}
		reader, size = bytes.NewReader(body), len(body)
		filename = path.Base(u.Path)
		if filename == "/" || filename == "." {
			filename = "download"
		}
	} else {
		f, err := os.Open(source)
		if os.IsNotExist(err) {
			return Upload{}, backend.Errorf(backend.ErrNotFound, "File %s not found", source)
		}
		if err != nil {
			return Upload{}, fmt.Errorf("open upload: %w", err)
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			return Upload{}, fmt.Errorf("stat upload: %w", err)
		}
		if info.IsDir() {
			return Upload{}, backend.Errorf(backend.ErrInvalid, "%s is a directory", source)
		}
		reader, size, filename = f, int(info.Size()), filepath.Base(source)
	}
	if title == "" {
		title = filename
	}

	summary, err := s.api.UploadFileV2Context(ctx, goslack.UploadFileV2Parameters{
		Reader:          reader,
		FileSize:        size,
		Filename:        filename,
		Title:           title,
		Channel:         channel,
		ThreadTimestamp: ts,
	})
	if err != nil {
		s.logWarn("slack_upload_failed", "channel", channel, "filename", filename, "error", err)
		return Upload{}, fmt.Errorf("slack upload: %w", err)
	}
	s.logInfo("slack_upload", "channel", channel, "file_id", summary.ID, "bytes", size)
	return Upload{
		OK:       true,
		FileID:   summary.ID,
		Title:    title,
		Filename: filename,
		Channel:  channel,
		ThreadTS: ts,
	}, nil
}

func (s *Service) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, backend.Errorf(backend.ErrInvalid, "invalid file URL: %v", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &backend.StatusError{Service: "file download", Code: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if len(body) > MaxDownloadBytes {
		return nil, backend.Errorf(backend.ErrInvalid, "file at %s exceeds %d bytes", rawURL, MaxDownloadBytes)
	}
	return body, nil
}

// UserSync reports a users.list mirror run.
type UserSync struct {
	Success   bool   `json:"success"`
	Processed int    `json:"users_processed"`
	Added     int    `json:"users_added"`
	Updated   int    `json:"users_updated"`
	Errors    int    `json:"errors"`
	Message   string `json:"message"`
}

// SyncUsers stores every active human member of the workspace.
func (s *Service) SyncUsers(ctx context.Context) (UserSync, error) {
	if s.api == nil {
		return UserSync{}, backend.NotConfigured("Slack bot token")
	}
	if s.dir == nil {
		return UserSync{}, backend.NotConfigured("Slack user storage")
	}
	members, err := s.api.GetUsersContext(ctx)
	if err != nil {
		return UserSync{}, fmt.Errorf("list slack users: %w", err)
	}
	existing, err := s.dir.Users(ctx, "")
	if err != nil {
		return UserSync{}, err
	}
	known := make(map[string]bool, len(existing))
	for _, u := range existing {
		known[u.ID] = true
	}

	var res UserSync
	rows := make([]storage.User, 0, len(members))
	for _, m := range members {
		if m.Deleted || m.IsBot || m.IsAppUser || m.ID == "" {
			continue
		}
		res.Processed++
		if known[m.ID] {
			res.Updated++
		} else {
			res.Added++
		}
		name := m.Profile.DisplayName
		if name == "" {
			name = m.Name
		}
		realName := m.Profile.RealName
		if realName == "" {
			realName = m.RealName
		}
		rows = append(rows, storage.User{
			ID:       m.ID,
			Name:     name,
			RealName: realName,
			Email:    m.Profile.Email,
			TimeZone: m.TZ,
		})
	}
	if _, err := s.dir.UpsertUsers(ctx, rows); err != nil {
		return UserSync{}, err
	}
	res.Success = true
	res.Message = fmt.Sprintf("Processed %d users: %d added, %d updated, %d errors",
		res.Processed, res.Added, res.Updated, res.Errors)
	s.logInfo("slack_users_synced", "processed", res.Processed, "added", res.Added)
	return res, nil
}

// ChannelSync reports a conversations.list mirror run.
type ChannelSync struct {
	Success   bool   `json:"success"`
	Processed int    `json:"channels_processed"`
	Added     int    `json:"channels_added"`
	Updated   int    `json:"channels_updated"`
	Errors    int    `json:"errors"`
	Message   string `json:"message"`
}

// SyncConversations stores every public and private channel visible to the bot.
func (s *Service) SyncConversations(ctx context.Context) (ChannelSync, error) {
	if s.api == nil {
		return ChannelSync{}, backend.NotConfigured("Slack bot token")
	}
	if s.dir == nil {
		return ChannelSync{}, backend.NotConfigured("Slack channel storage")
	}

	var all []goslack.Channel
	params := &goslack.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel"},
		Limit: 200,
	}
	for {
		page, cursor, err := s.api.GetConversationsContext(ctx, params)
		if err != nil {
			return ChannelSync{}, fmt.Errorf("list slack conversations: %w", err)
		}
		all = append(all, page...)
		if cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	existing, err := s.dir.Channels(ctx, "")
	if err != nil {
		return ChannelSync{}, err
	}
	known := make(map[string]bool, len(existing))
	for _, c := range existing {
		known[c.ID] = true
	}

	var res ChannelSync
	rows := make([]storage.Channel, 0, len(all))
	for _, c := range all {
		if c.ID == "" {
			continue
		}
		res.Processed++
		if known[c.ID] {
			res.Updated++
		} else {
			res.Added++
		}
		rows = append(rows, storage.Channel{
			ID:          c.ID,
			Name:        c.Name,
			IsPrivate:   c.IsPrivate,
			IsArchived:  c.IsArchived,
			Topic:       c.Topic.Value,
			Purpose:     c.Purpose.Value,
			MemberCount: c.NumMembers,
		})
	}
	if _, err := s.dir.UpsertChannels(ctx, rows); err != nil {
		return ChannelSync{}, err
	}
	res.Success = true
	res.Message = fmt.Sprintf("Processed %d channels: %d added, %d updated, %d errors",
		res.Processed, res.Added, res.Updated, res.Errors)
	s.logInfo("slack_channels_synced", "processed", res.Processed, "added", res.Added)
	return res, nil
}

func (s *Service) logInfo(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
