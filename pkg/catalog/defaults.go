package catalog

import (
	"sync"

	s "github.com/sameehj/officemcp/pkg/schema"
)

const datePattern = `^\d{4}-\d{2}-\d{2}$`

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the built-in catalog. The same instance is returned on every call.
func Default() *Catalog {
	defaultOnce.Do(func() {
		var all []Descriptor
		for _, group := range [][]Descriptor{
			weatherTools(),
			webTools(),
			storageTools(),
			slackTools(),
			odooTools(),
			amazonTools(),
			documentTools(),
			utilityTools(),
		} {
			all = append(all, group...)
		}
		defaultCatalog = MustNew(all...)
	})
	return defaultCatalog
}

func tool(name, description string, input *s.Node) Descriptor {
	return Descriptor{Name: name, Description: description, InputSchema: input}
}

type props = map[string]*s.Node

func weatherTools() []Descriptor {
	return []Descriptor{
		tool("get_weather_data", "Get current weather data for a specified location",
			s.Object(props{
				"location_name": s.String("Name of the location to get weather for").WithDefault("Whitehorse"),
			})),
		tool("get_coordinates", "Get latitude and longitude coordinates for a location name",
			s.Object(props{
				"location_name": s.String("Name of the location to get coordinates for"),
			}, "location_name")),
	}
}

func webTools() []Descriptor {
	return []Descriptor{
		tool("google_search", "Perform a Google search with advanced operators and return web content",
			s.Object(props{
				"search_term":   s.String("The main search query"),
				"before":        s.String("Search for content before this date (YYYY-MM-DD format)").WithPattern(datePattern),
				"after":         s.String("Search for content after this date (YYYY-MM-DD format)").WithPattern(datePattern),
				"intext":        s.String("Search for this text within the page content"),
				"allintext":     s.String("Search for all these terms within the page content"),
				"and_condition": s.String("Additional term that must be present (AND operator)"),
				"must_have":     s.String("Exact phrase that must be present in results"),
			}, "search_term")),
		tool("browse_internet", "Browse and extract content from a list of URLs",
			s.Object(props{
				"urls": s.Array("List of URLs to browse and extract content from",
					s.String("").WithFormat(s.FormatURI)).WithMinItems(1),
				"full_text": s.Boolean("Whether to return full text or summarized content").WithDefault(false),
			}, "urls")),
		tool("shorten_url", "Create a shortened URL using the URL shortener service",
			s.Object(props{
				"url":         s.String("The URL to shorten").WithFormat(s.FormatURI),
				"custom_code": s.String("Optional custom short code").WithPattern(`^[a-zA-Z0-9_-]+$`),
			}, "url")),
	}
}

func storageTools() []Descriptor {
	return []Descriptor{
		tool("get_message_by_sort_id", "Retrieve a specific message by its sort ID and role",
			s.Object(props{
				"role":    s.String("The role of the message sender").WithEnum("user", "assistant"),
				"chat_id": s.String("The chat/channel ID"),
				"sort_id": s.Integer("The sort ID (timestamp) of the message"),
			}, "role", "chat_id", "sort_id")),
		tool("get_messages_in_range", "Retrieve messages within a specific time range",
			s.Object(props{
				"chat_id":       s.String("The chat/channel ID"),
				"start_sort_id": s.Integer("Start timestamp for the range"),
				"end_sort_id":   s.Integer("End timestamp for the range"),
			}, "chat_id", "start_sort_id", "end_sort_id")),
		tool("get_users", "Retrieve user information from the database",
			s.Object(props{
				"user_id": s.String("Optional specific user ID to retrieve"),
			})),
		tool("get_channels", "Retrieve channel information from the database",
			s.Object(props{
				"id": s.String("Optional specific channel ID to retrieve"),
			})),
		tool("manage_mute_status", "Get or set the mute status for a chat/channel",
			s.Object(props{
				"chat_id": s.String("The chat/channel ID"),
				"status": s.Union("New mute status (true/false) or null to just retrieve current status",
					s.TypeBoolean, s.TypeString, s.TypeNull),
			}, "chat_id")),
	}
}

func slackTools() []Descriptor {
	return []Descriptor{
		tool("send_file_to_slack", "Upload a file to a Slack channel",
			s.Object(props{
				"file_path": s.String("Path to the file or URL to upload"),
				"chat_id":   s.String("Slack channel ID"),
				"title":     s.String("Title for the file"),
				"ts":        s.String("Optional thread timestamp for threaded upload"),
			}, "file_path", "chat_id", "title")),
		tool("update_slack_users", "Sync user data from Slack workspace", s.Object(nil)),
		tool("update_slack_conversations", "Sync channel/conversation data from Slack workspace", s.Object(nil)),
	}
}

func odooTools() []Descriptor {
	return []Descriptor{
		tool("odoo_get_mapped_models", "Get available mapped models from Odoo",
			s.Object(props{
				"include_fields": s.Boolean("Whether to include field mappings").WithDefault(true),
				"model_name":     s.String("Optional filter for specific model name"),
			})),
		tool("odoo_fetch_records", "Retrieve records from an Odoo model",
			s.Object(props{
				"external_model": s.String("External model name in Odoo"),
				"filters":        s.Array("Optional Odoo domain filters", s.Union("", s.TypeArray)),
			}, "external_model")),
		tool("odoo_create_record", "Create a new record in Odoo",
			s.Object(props{
				"external_model": s.String("External model name in Odoo"),
				"record_data":    s.Object(nil).WithDescription("Data for the new record").WithAdditionalProperties(true),
			}, "external_model", "record_data")),
		tool("odoo_update_record", "Update an existing record in Odoo",
			s.Object(props{
				"external_model": s.String("External model name in Odoo"),
				"record_id":      s.Integer("ID of the record to update"),
			}, "external_model", "record_id").WithAdditionalProperties(true)),
		tool("odoo_delete_record", "Delete a record from Odoo",
			s.Object(props{
				"external_model": s.String("External model name in Odoo"),
				"record_id":      s.Integer("ID of the record to delete"),
			}, "external_model", "record_id")),
		tool("odoo_print_record", "Generate a PDF report for an Odoo record",
			s.Object(props{
				"model_name": s.String("Technical name of the Odoo model"),
				"record_id":  s.Integer("ID of the record to print"),
			}, "model_name", "record_id")),
		tool("odoo_post_record", "Post a record in Odoo (change status to posted)",
			s.Object(props{
				"external_model": s.String("External model name in Odoo"),
				"record_id":      s.Integer("ID of the record to post"),
			}, "external_model", "record_id")),
	}
}

// AmazonCountries are the marketplaces accepted by search_amazon_products.
var AmazonCountries = []any{"US", "CA", "UK", "DE", "FR", "IT", "ES", "JP", "AU"}

func amazonTools() []Descriptor {
	return []Descriptor{
		tool("search_amazon_products", "Search for products on Amazon marketplace",
			s.Object(props{
				"query": s.String("Search term for Amazon products"),
				"country": s.String("Amazon marketplace country code").
					WithDefault("CA").WithEnum(AmazonCountries...),
				"page": s.Integer("Page number of results").WithDefault(1).WithMinimum(1),
				"sort_by": s.String("How to sort the results").WithDefault("RELEVANCE").
					WithEnum("RELEVANCE", "PRICE_LOW_TO_HIGH", "PRICE_HIGH_TO_LOW", "RATING", "NEWEST"),
				"product_condition": s.String("Product condition filter").WithDefault("NEW").
					WithEnum("NEW", "USED", "REFURBISHED"),
				"is_prime": s.Boolean("Filter for Amazon Prime eligible products").WithDefault(false),
				"deals_and_discounts": s.String("Filter for deals and discounts").WithDefault("NONE").
					WithEnum("NONE", "TODAY_DEALS", "ON_SALE"),
			}, "query")),
		tool("search_and_format_products", "Search Amazon products and return formatted results",
			s.Object(props{
				"query":        s.String("Search term for Amazon products"),
				"country":      s.String("Amazon marketplace country code").WithDefault("CA"),
				"max_products": s.Integer("Maximum number of products to show").WithDefault(5).WithMinimum(1).WithMaximum(20),
			}, "query").WithAdditionalProperties(true)),
	}
}

func documentTools() []Descriptor {
	return []Descriptor{
		tool("send_as_pdf", "Convert text to PDF and upload to Slack",
			s.Object(props{
				"text":    s.String("Text content to convert to PDF"),
				"chat_id": s.String("Slack channel ID to upload to"),
				"title":   s.String("Title for the PDF document"),
				"ts":      s.String("Optional thread timestamp for threaded upload"),
			}, "text", "chat_id", "title")),
		tool("list_files", "List files in the shared files folder",
			s.Object(props{
				"folder_prefix": s.String("Folder prefix to list files from").WithDefault("uploads"),
			})),
		tool("get_embedding", "Generate text embedding using OpenAI",
			s.Object(props{
				"text":  s.String("Text to generate embedding for"),
				"model": s.String("OpenAI embedding model to use").WithDefault("text-embedding-ada-002"),
			}, "text")),
	}
}

func utilityTools() []Descriptor {
	return []Descriptor{
		tool("solve_maths", "Execute Python code for mathematical calculations",
			s.Object(props{
				"code": s.String("Python code to execute for calculations"),
			}, "code").WithAdditionalProperties(true)),
		tool("ask_openai_reasoning", "Query OpenAI's latest deep reasoning model",
			s.Object(props{
				"prompt": s.String("Prompt to send to OpenAI reasoning model"),
			}, "prompt")),
	}
}
