// Package tools binds every catalog tool name to a handler over its backend.
package tools

import (
	"context"

	"github.com/sameehj/officemcp/pkg/backend/amazon"
	"github.com/sameehj/officemcp/pkg/backend/documents"
	"github.com/sameehj/officemcp/pkg/backend/maths"
	"github.com/sameehj/officemcp/pkg/backend/odoo"
	"github.com/sameehj/officemcp/pkg/backend/shortener"
	"github.com/sameehj/officemcp/pkg/backend/slack"
	"github.com/sameehj/officemcp/pkg/backend/storage"
	"github.com/sameehj/officemcp/pkg/backend/weather"
	"github.com/sameehj/officemcp/pkg/backend/web"
)

type Weather interface {
	Coordinates(ctx context.Context, name string) (weather.Location, error)
	Current(ctx context.Context, name string) (map[string]any, error)
}

type Web interface {
	Search(ctx context.Context, q web.Query) ([]web.Page, error)
	Browse(ctx context.Context, urls []string, fullText bool) ([]web.Page, error)
}

type Shortener interface {
	Shorten(ctx context.Context, rawURL, customCode string) (shortener.Result, error)
}

type Storage interface {
	MessageBySortID(ctx context.Context, role, chatID string, sortID int64) (storage.Message, error)
	MessagesInRange(ctx context.Context, chatID string, start, end int64) ([]storage.Message, error)
	Users(ctx context.Context, id string) ([]storage.User, error)
	Channels(ctx context.Context, id string) ([]storage.Channel, error)
	ManageMute(ctx context.Context, chatID string, set *bool) (storage.MuteResult, error)
}

type Slack interface {
	UploadFile(ctx context.Context, source, channel, title, ts string) (slack.Upload, error)
	SyncUsers(ctx context.Context) (slack.UserSync, error)
	SyncConversations(ctx context.Context) (slack.ChannelSync, error)
}

type Odoo interface {
	MappedModels(ctx context.Context, includeFields bool, modelName string) (any, error)
	FetchRecords(ctx context.Context, model string, filters []any) (any, error)
	CreateRecord(ctx context.Context, model string, data map[string]any) (any, error)
	UpdateRecord(ctx context.Context, model string, id int64, data map[string]any) (any, error)
	DeleteRecord(ctx context.Context, model string, id int64) (any, error)
	PrintRecord(ctx context.Context, model string, id int64) (odoo.Report, error)
	PostRecord(ctx context.Context, model string, id int64) (any, error)
}

type Amazon interface {
	Search(ctx context.Context, p amazon.SearchParams) (amazon.SearchResult, error)
	SearchFormatted(ctx context.Context, p amazon.SearchParams, maxProducts int) (string, error)
}

type Documents interface {
	SendAsPDF(ctx context.Context, text, channel, title, ts string) (documents.PDFUpload, error)
	ListFiles(prefix string) (documents.Listing, error)
	Embedding(ctx context.Context, text, model string) (documents.Embedding, error)
}

type Reasoner interface {
	Reason(ctx context.Context, prompt string) (string, error)
}

type Maths interface {
	Solve(ctx context.Context, code string, params map[string]any) (maths.Solution, error)
}

// Deps are the collaborators behind the tool table. A nil member makes its
// tools report Unavailable.
type Deps struct {
	Weather   Weather
	Web       Web
	Shortener Shortener
	Storage   Storage
	Slack     Slack
	Odoo      Odoo
	Amazon    Amazon
	Documents Documents
	Reasoner  Reasoner
	Maths     Maths
}
