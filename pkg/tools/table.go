package tools

import (
	"context"

	"github.com/sameehj/officemcp/pkg/backend/amazon"
	"github.com/sameehj/officemcp/pkg/backend/storage"
	"github.com/sameehj/officemcp/pkg/backend/web"
	"github.com/sameehj/officemcp/pkg/dispatch"
)

type binder struct {
	table dispatch.Table
}

// bind registers fn under name, or an Unavailable stub when ready is false.
func (b binder) bind(name string, ready bool, what string, fn dispatch.HandlerFunc) {
	if !ready {
		b.table[name] = dispatch.HandlerFunc(func(context.Context, map[string]any) (any, error) {
			return nil, dispatch.Unavailable("%s is not configured", what)
		})
		return
	}
	b.table[name] = dispatch.HandlerFunc(func(ctx context.Context, args map[string]any) (any, error) {
		res, err := fn(ctx, args)
		if err != nil {
			return nil, classify(err)
		}
		return res, nil
	})
}

// Table returns a handler for every built-in tool.
func Table(d Deps) dispatch.Table {
	b := binder{table: dispatch.Table{}}
	bindWeather(b, d)
	bindWeb(b, d)
	bindStorage(b, d)
	bindSlack(b, d)
	bindOdoo(b, d)
	bindAmazon(b, d)
	bindDocuments(b, d)
	bindUtilities(b, d)
	return b.table
}

func bindWeather(b binder, d Deps) {
	ready := d.Weather != nil
	b.bind("get_weather_data", ready, "Weather service", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Weather.Current(ctx, argString(args, "location_name"))
	})
	b.bind("get_coordinates", ready, "Weather service", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Weather.Coordinates(ctx, argString(args, "location_name"))
	})
}

func bindWeb(b binder, d Deps) {
	b.bind("google_search", d.Web != nil, "Web search", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Web.Search(ctx, web.Query{
			Term:         argString(args, "search_term"),
			Before:       argString(args, "before"),
			After:        argString(args, "after"),
			InText:       argString(args, "intext"),
			AllInText:    argString(args, "allintext"),
			AndCondition: argString(args, "and_condition"),
			MustHave:     argString(args, "must_have"),
		})
	})
	b.bind("browse_internet", d.Web != nil, "Web browsing", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Web.Browse(ctx, argStrings(args, "urls"), argBool(args, "full_text", false))
	})
	b.bind("shorten_url", d.Shortener != nil, "URL shortener", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Shortener.Shorten(ctx, argString(args, "url"), argString(args, "custom_code"))
	})
}

func bindStorage(b binder, d Deps) {
	ready := d.Storage != nil
	b.bind("get_message_by_sort_id", ready, "Message storage", func(ctx context.Context, args map[string]any) (any, error) {
		sortID, err := argInt(args, "sort_id", 0)
		if err != nil {
			return nil, err
		}
		msg, err := d.Storage.MessageBySortID(ctx, argString(args, "role"), argString(args, "chat_id"), sortID)
		if err != nil {
			return nil, err
		}
		return dispatch.Op("get_message", msg), nil
	})
	b.bind("get_messages_in_range", ready, "Message storage", func(ctx context.Context, args map[string]any) (any, error) {
		start, err := argInt(args, "start_sort_id", 0)
		if err != nil {
			return nil, err
		}
		end, err := argInt(args, "end_sort_id", 0)
		if err != nil {
			return nil, err
		}
		if start >= end {
			return nil, dispatch.BadRequest("Start sort ID must be less than end sort ID")
		}
		msgs, err := d.Storage.MessagesInRange(ctx, argString(args, "chat_id"), start, end)
		if err != nil {
			return nil, err
		}
		return dispatch.Op("get_messages_in_range", msgs), nil
	})
	b.bind("get_users", ready, "User storage", func(ctx context.Context, args map[string]any) (any, error) {
		users, err := d.Storage.Users(ctx, argString(args, "user_id"))
		if err != nil {
			return nil, err
		}
		return dispatch.Op("get_users", users), nil
	})
	b.bind("get_channels", ready, "Channel storage", func(ctx context.Context, args map[string]any) (any, error) {
		channels, err := d.Storage.Channels(ctx, argString(args, "id"))
		if err != nil {
			return nil, err
		}
		return dispatch.Op("get_channels", channels), nil
	})
	b.bind("manage_mute_status", ready, "Mute storage", func(ctx context.Context, args map[string]any) (any, error) {
		set, err := storage.ParseMuteStatus(args["status"])
		if err != nil {
			return nil, err
		}
		res, err := d.Storage.ManageMute(ctx, argString(args, "chat_id"), set)
		if err != nil {
			return nil, err
		}
		return dispatch.Op("manage_mute_status", res), nil
	})
}

func bindSlack(b binder, d Deps) {
	ready := d.Slack != nil
	b.bind("send_file_to_slack", ready, "Slack", func(ctx context.Context, args map[string]any) (any, error) {
		res, err := d.Slack.UploadFile(ctx, argString(args, "file_path"), argString(args, "chat_id"),
			argString(args, "title"), argString(args, "ts"))
		if err != nil {
			return nil, err
		}
		return dispatch.Op("slack_file_upload", res), nil
	})
	b.bind("update_slack_users", ready, "Slack", func(ctx context.Context, args map[string]any) (any, error) {
		res, err := d.Slack.SyncUsers(ctx)
		if err != nil {
			return nil, err
		}
		return dispatch.Op("update_slack_users", res), nil
	})
	b.bind("update_slack_conversations", ready, "Slack", func(ctx context.Context, args map[string]any) (any, error) {
		res, err := d.Slack.SyncConversations(ctx)
		if err != nil {
			return nil, err
		}
		return dispatch.Op("update_slack_conversations", res), nil
	})
}

func bindOdoo(b binder, d Deps) {
	ready := d.Odoo != nil
	op := func(name string, res any, err error) (any, error) {
		if err != nil {
			return nil, err
		}
		return dispatch.Op(name, res), nil
	}
	withID := func(args map[string]any, fn func(model string, id int64) (any, error)) (any, error) {
		id, err := argInt(args, "record_id", 0)
		if err != nil {
			return nil, err
		}
		return fn(argString(args, "external_model"), id)
	}

	b.bind("odoo_get_mapped_models", ready, "Odoo", func(ctx context.Context, args map[string]any) (any, error) {
		res, err := d.Odoo.MappedModels(ctx, argBool(args, "include_fields", true), argString(args, "model_name"))
		return op("get_mapped_models", res, err)
	})
	b.bind("odoo_fetch_records", ready, "Odoo", func(ctx context.Context, args map[string]any) (any, error) {
		res, err := d.Odoo.FetchRecords(ctx, argString(args, "external_model"), argSlice(args, "filters"))
		return op("fetch_records", res, err)
	})
	b.bind("odoo_create_record", ready, "Odoo", func(ctx context.Context, args map[string]any) (any, error) {
		data, _ := args["record_data"].(map[string]any)
		res, err := d.Odoo.CreateRecord(ctx, argString(args, "external_model"), data)
		return op("create_record", res, err)
	})
	b.bind("odoo_update_record", ready, "Odoo", func(ctx context.Context, args map[string]any) (any, error) {
		return withID(args, func(model string, id int64) (any, error) {
			res, err := d.Odoo.UpdateRecord(ctx, model, id, extras(args, "external_model", "record_id"))
			return op("update_record", res, err)
		})
	})
	b.bind("odoo_delete_record", ready, "Odoo", func(ctx context.Context, args map[string]any) (any, error) {
		return withID(args, func(model string, id int64) (any, error) {
			res, err := d.Odoo.DeleteRecord(ctx, model, id)
			return op("delete_record", res, err)
		})
	})
	b.bind("odoo_print_record", ready, "Odoo", func(ctx context.Context, args map[string]any) (any, error) {
		id, err := argInt(args, "record_id", 0)
		if err != nil {
			return nil, err
		}
		res, err := d.Odoo.PrintRecord(ctx, argString(args, "model_name"), id)
		return op("print_record", res, err)
	})
	b.bind("odoo_post_record", ready, "Odoo", func(ctx context.Context, args map[string]any) (any, error) {
		return withID(args, func(model string, id int64) (any, error) {
			res, err := d.Odoo.PostRecord(ctx, model, id)
			return op("post_record", res, err)
		})
	})
}

func bindAmazon(b binder, d Deps) {
	ready := d.Amazon != nil
	params := func(args map[string]any) (amazon.SearchParams, error) {
		page, err := argInt(args, "page", 1)
		if err != nil {
			return amazon.SearchParams{}, err
		}
		return amazon.SearchParams{
			Query:             argString(args, "query"),
			Country:           argStringDefault(args, "country", "CA"),
			Page:              int(page),
			SortBy:            argStringDefault(args, "sort_by", "RELEVANCE"),
			ProductCondition:  argStringDefault(args, "product_condition", "NEW"),
			IsPrime:           argBool(args, "is_prime", false),
			DealsAndDiscounts: argStringDefault(args, "deals_and_discounts", "NONE"),
		}, nil
	}

	b.bind("search_amazon_products", ready, "Amazon search", func(ctx context.Context, args map[string]any) (any, error) {
		p, err := params(args)
		if err != nil {
			return nil, err
		}
		res, err := d.Amazon.Search(ctx, p)
		if err != nil {
			return nil, err
		}
		return res.Products, nil
	})
	b.bind("search_and_format_products", ready, "Amazon search", func(ctx context.Context, args map[string]any) (any, error) {
		p, err := params(args)
		if err != nil {
			return nil, err
		}
		maxProducts, err := argInt(args, "max_products", 5)
		if err != nil {
			return nil, err
		}
		return d.Amazon.SearchFormatted(ctx, p, int(maxProducts))
	})
}

func bindDocuments(b binder, d Deps) {
	ready := d.Documents != nil
	b.bind("send_as_pdf", ready, "Document service", func(ctx context.Context, args map[string]any) (any, error) {
		res, err := d.Documents.SendAsPDF(ctx, argString(args, "text"), argString(args, "chat_id"),
			argString(args, "title"), argString(args, "ts"))
		if err != nil {
			return nil, err
		}
		return dispatch.Op("pdf_conversion_upload", res), nil
	})
	b.bind("list_files", ready, "Document service", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Documents.ListFiles(argStringDefault(args, "folder_prefix", "uploads"))
	})
	b.bind("get_embedding", ready, "Document service", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Documents.Embedding(ctx, argString(args, "text"), argStringDefault(args, "model", "text-embedding-ada-002"))
	})
}

func bindUtilities(b binder, d Deps) {
	b.bind("solve_maths", d.Maths != nil, "Maths runner", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Maths.Solve(ctx, argString(args, "code"), extras(args, "code"))
	})
	b.bind("ask_openai_reasoning", d.Reasoner != nil, "OpenAI", func(ctx context.Context, args map[string]any) (any, error) {
		return d.Reasoner.Reason(ctx, argString(args, "prompt"))
	})
}
