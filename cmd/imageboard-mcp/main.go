package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// apiError mirrors the imageboard API error detail.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// envelope mirrors the imageboard API response envelope.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   *apiError       `json:"error"`
}

type image struct {
	URL string `json:"url"`
	Alt string `json:"alt"`
}

type post struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	Content   string  `json:"content"`
	Locale    string  `json:"locale"`
	Images    []image `json:"images"`
	CreatedAt string  `json:"createdAt"`
}

type comment struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Author  *struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"author"`
	CreatedAt string     `json:"createdAt"`
	Children  []*comment `json:"children"`
}

type commentsMeta struct {
	Page    int  `json:"page"`
	Count   int  `json:"count"`
	HasMore bool `json:"hasMore"`
}

func main() {
	apiURL := os.Getenv("IMAGEBOARD_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}
	apiURL = strings.TrimRight(apiURL, "/")

	s := server.NewMCPServer(
		"imageboard",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	listPostsTool := mcp.NewTool("list_posts",
		mcp.WithDescription("List the posts of the image board feed, newest first, with their image URLs."),
		mcp.WithString("locale",
			mcp.Description("Locale of the feed: 'ko' (default), 'en' or 'ja'"),
			mcp.Enum("ko", "en", "ja"),
		),
	)
	s.AddTool(listPostsTool, handleListPosts(apiURL))

	getPostTool := mcp.NewTool("get_post",
		mcp.WithDescription("Fetch one post by its document id, including its full text and every image."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The post document id"),
		),
		mcp.WithString("locale",
			mcp.Description("Locale of the post: 'ko' (default), 'en' or 'ja'"),
			mcp.Enum("ko", "en", "ja"),
		),
	)
	s.AddTool(getPostTool, handleGetPost(apiURL))

	listCommentsTool := mcp.NewTool("list_comments",
		mcp.WithDescription("Read the threaded comments of a post. Replies are indented under their parent; deleted comments with replies are kept as placeholders."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("The post document id"),
		),
		mcp.WithNumber("pages",
			mcp.Description("How many pages of 10 comments to load (default: 1, max: 20)"),
		),
	)
	s.AddTool(listCommentsTool, handleListComments(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiGet fetches path from the imageboard API and decodes the envelope.
func apiGet(ctx context.Context, client *http.Client, apiURL, path string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if !env.Success {
		if env.Error != nil {
			return nil, fmt.Errorf("[%s] %s", env.Error.Code, env.Error.Message)
		}
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return &env, nil
}

func handleListPosts(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		locale := request.GetString("locale", "")

		env, err := apiGet(ctx, client, apiURL, "/api/v1/posts?locale="+url.QueryEscape(locale))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var posts []post
		if err := json.Unmarshal(env.Data, &posts); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse posts: %v", err)), nil
		}
		if len(posts) == 0 {
			return mcp.NewToolResultText("No posts."), nil
		}

		var sb strings.Builder
		for i, p := range posts {
			fmt.Fprintf(&sb, "[%d] %s (id: %s)\n", i+1, p.Title, p.ID)
			if len(p.Images) > 0 {
				fmt.Fprintf(&sb, "    image: %s\n", p.Images[0].URL)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleGetPost(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 30 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		locale := request.GetString("locale", "")

		path := "/api/v1/posts/" + url.PathEscape(id) + "?locale=" + url.QueryEscape(locale)
		env, err := apiGet(ctx, client, apiURL, path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var p post
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse post: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Title: %s\nLocale: %s\nCreated: %s\n\n%s\n", p.Title, p.Locale, p.CreatedAt, p.Content)
		if len(p.Images) > 0 {
			sb.WriteString("\nImages:\n")
			for _, img := range p.Images {
				fmt.Fprintf(&sb, "- %s\n", img.URL)
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleListComments(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 60 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := request.RequireString("id")
		if err != nil {
			return mcp.NewToolResultError("id is required"), nil
		}
		pages := int(request.GetFloat("pages", 1))
		if pages < 1 {
			pages = 1
		}
		if pages > 20 {
			pages = 20
		}

		path := fmt.Sprintf("/api/v1/posts/%s/comments?page=%d", url.PathEscape(id), pages)
		env, err := apiGet(ctx, client, apiURL, path)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var roots []*comment
		if err := json.Unmarshal(env.Data, &roots); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse comments: %v", err)), nil
		}
		var meta commentsMeta
		_ = json.Unmarshal(env.Meta, &meta)

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d comments", meta.Count)
		if meta.HasMore {
			fmt.Fprintf(&sb, " (more after page %d)", meta.Page)
		}
		sb.WriteString("\n\n")
		for _, c := range roots {
			writeComment(&sb, c, 0)
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func writeComment(sb *strings.Builder, c *comment, depth int) {
	author := "anonymous"
	if c.Author != nil {
		if c.Author.Name != "" {
			author = c.Author.Name
		} else if c.Author.Email != "" {
			author = c.Author.Email
		}
	}
	fmt.Fprintf(sb, "%s- #%d %s: %s\n", strings.Repeat("  ", depth), c.ID, author, c.Content)
	for _, child := range c.Children {
		writeComment(sb, child, depth+1)
	}
}
