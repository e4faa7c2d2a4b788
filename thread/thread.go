// Package thread rebuilds threaded comment discussions from the flat or
// partially nested payloads of the CMS comments plugin.
//
// Comments are kept as a flat list with parent pointers (ThreadOf) while they
// are loaded and merged page by page, and only turned into a forest for
// rendering. A soft-deleted comment survives as a tombstone as long as another
// comment still replies to it.
package thread

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/use-agent/imageboard/models"
)

// SoftDeletePlaceholder is the content written over a comment that is deleted
// while it still has replies.
const SoftDeletePlaceholder = "[deleted]"

// Action is the way a comment should be removed.
type Action int

const (
	// HardDelete removes the comment from the CMS.
	HardDelete Action = iota
	// SoftDelete overwrites the content with SoftDeletePlaceholder.
	SoftDelete
)

func (a Action) String() string {
	if a == SoftDelete {
		return "soft"
	}
	return "hard"
}

// IsSoftDeleted reports whether c is flagged deleted or removed, or carries
// the placeholder content.
func IsSoftDeleted(c *models.Comment) bool {
	if c == nil {
		return false
	}
	return c.Deleted || c.Removed || c.Content == SoftDeletePlaceholder
}

type rawAuthor struct {
	ID    json.RawMessage `json:"id"`
	Name  string          `json:"name"`
	Email string          `json:"email"`
}

type rawComment struct {
	ID        json.RawMessage   `json:"id"`
	Content   string            `json:"content"`
	Deleted   bool              `json:"deleted"`
	Removed   bool              `json:"removed"`
	Blocked   bool              `json:"blocked"`
	AuthorID  json.RawMessage   `json:"authorId"`
	Author    json.RawMessage   `json:"author"`
	ThreadOf  json.RawMessage   `json:"threadOf"`
	CreatedAt string            `json:"createdAt"`
	Children  []json.RawMessage `json:"children"`
}

// Normalize decodes one comment. The id may be a number or a numeric string;
// threadOf may be a number, a numeric string, an object with an id, or null.
// A threadOf that cannot be read as a number becomes nil. It reports false
// when the id is not numeric.
func Normalize(raw json.RawMessage) (models.Comment, bool) {
	c, _, ok := decodeNode(raw)
	return c, ok
}

func decodeNode(raw json.RawMessage) (models.Comment, []json.RawMessage, bool) {
	var rc rawComment
	if err := json.Unmarshal(raw, &rc); err != nil {
		return models.Comment{}, nil, false
	}
	id, ok := number(rc.ID)
	if !ok {
		return models.Comment{}, rc.Children, false
	}

	c := models.Comment{
		ID:        id,
		Content:   rc.Content,
		Deleted:   rc.Deleted,
		Removed:   rc.Removed,
		Blocked:   rc.Blocked,
		CreatedAt: rc.CreatedAt,
	}
	c.AuthorID, _ = number(rc.AuthorID)
	if author, ok := decodeAuthor(rc.Author); ok {
		c.Author = author
	}
	if parent, ok := reference(rc.ThreadOf); ok {
		c.ThreadOf = &parent
	}
	return c, rc.Children, true
}

// Flatten walks items depth-first and returns every comment in visit order
// with its children cleared. A comment without its own threadOf inherits the
// id of the comment it was nested under, or parent for top-level items.
func Flatten(items []json.RawMessage, parent *int64) []models.Comment {
	out := make([]models.Comment, 0, len(items))
	var visit func(raw json.RawMessage, parent *int64)
	visit = func(raw json.RawMessage, parent *int64) {
		c, children, ok := decodeNode(raw)
		if !ok {
			// Replies of an unreadable comment attach to its parent.
			for _, child := range children {
				visit(child, parent)
			}
			return
		}
		if c.ThreadOf == nil && parent != nil {
			p := *parent
			c.ThreadOf = &p
		}
		c.Children = nil
		out = append(out, c)

		id := c.ID
		for _, child := range children {
			visit(child, &id)
		}
	}
	for _, item := range items {
		visit(item, parent)
	}
	return out
}

// Upsert merges next into prev by id. Existing comments keep their position
// and new ones are appended in order. Incoming fields replace existing ones,
// except that a missing threadOf, author or createdAt keeps the known value.
func Upsert(prev, next []models.Comment) []models.Comment {
	out := make([]models.Comment, 0, len(prev)+len(next))
	index := make(map[int64]int, len(prev)+len(next))

	merge := func(c models.Comment) {
		i, exists := index[c.ID]
		if !exists {
			index[c.ID] = len(out)
			out = append(out, c)
			return
		}
		existing := out[i]
		if c.ThreadOf == nil {
			c.ThreadOf = existing.ThreadOf
		}
		if c.Author == nil {
			c.Author = existing.Author
		}
		if c.AuthorID == 0 {
			c.AuthorID = existing.AuthorID
		}
		if c.CreatedAt == "" {
			c.CreatedAt = existing.CreatedAt
		}
		out[i] = c
	}

	for _, c := range prev {
		merge(c)
	}
	for _, c := range next {
		merge(c)
	}
	return out
}

// Visible drops soft-deleted comments that nothing replies to.
func Visible(list []models.Comment) []models.Comment {
	parents := make(map[int64]struct{}, len(list))
	for _, c := range list {
		if c.ThreadOf != nil && *c.ThreadOf != c.ID {
			parents[*c.ThreadOf] = struct{}{}
		}
	}

	out := make([]models.Comment, 0, len(list))
	for i := range list {
		c := &list[i]
		if _, hasReplies := parents[c.ID]; IsSoftDeleted(c) && !hasReplies {
			continue
		}
		out = append(out, *c)
	}
	return out
}

// BuildTree turns a flat list into a forest. A comment whose parent is not in
// the list, points at itself, or sits on a parent cycle becomes a root. Roots
// and every list of children are sorted by id, newest first.
func BuildTree(list []models.Comment) []*models.Comment {
	nodes := make(map[int64]*models.Comment, len(list))
	order := make([]int64, 0, len(list))
	for i := range list {
		c := list[i]
		c.Children = nil
		if _, seen := nodes[c.ID]; !seen {
			order = append(order, c.ID)
		}
		nodes[c.ID] = &c
	}

	roots := make([]*models.Comment, 0, len(order))
	for _, id := range order {
		node := nodes[id]
		parent, ok := parentOf(node, nodes)
		if !ok || cyclic(id, nodes) {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}

	sortDesc(roots)
	return roots
}

func parentOf(c *models.Comment, nodes map[int64]*models.Comment) (*models.Comment, bool) {
	if c.ThreadOf == nil || *c.ThreadOf == c.ID {
		return nil, false
	}
	p, ok := nodes[*c.ThreadOf]
	return p, ok
}

// cyclic reports whether following parent pointers from id leads back to id.
func cyclic(id int64, nodes map[int64]*models.Comment) bool {
	seen := map[int64]struct{}{id: {}}
	cur := nodes[id]
	for {
		p, ok := parentOf(cur, nodes)
		if !ok {
			return false
		}
		if p.ID == id {
			return true
		}
		if _, loop := seen[p.ID]; loop {
			// A cycle further up; the members themselves become roots.
			return false
		}
		seen[p.ID] = struct{}{}
		cur = p
	}
}

func sortDesc(nodes []*models.Comment) {
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ID > nodes[j].ID })
	for _, n := range nodes {
		sortDesc(n.Children)
	}
}

// HasChildren reports whether any comment in list replies to id.
func HasChildren(list []models.Comment, id int64) bool {
	for _, c := range list {
		if c.ID != id && c.ThreadOf != nil && *c.ThreadOf == id {
			return true
		}
	}
	return false
}

// DeleteAction decides how comment id should be deleted: soft when it has
// replies, hard otherwise.
func DeleteAction(list []models.Comment, id int64) Action {
	if HasChildren(list, id) {
		return SoftDelete
	}
	return HardDelete
}

// Find returns the comment with the given id.
func Find(list []models.Comment, id int64) (*models.Comment, bool) {
	for i := range list {
		if list[i].ID == id {
			return &list[i], true
		}
	}
	return nil, false
}

// IsOwner reports whether userID wrote c.
func IsOwner(c *models.Comment, userID int64) bool {
	if c == nil || userID == 0 {
		return false
	}
	return c.AuthorID == userID || (c.Author != nil && c.Author.ID == userID)
}

// AuthorLabel returns the author's name, else the email. When neither is
// known the name is "" and id carries the author id (0 when anonymous).
func AuthorLabel(c *models.Comment) (name string, id int64) {
	if c == nil {
		return "", 0
	}
	if c.Author != nil {
		if c.Author.Name != "" {
			return c.Author.Name, 0
		}
		if c.Author.Email != "" {
			return c.Author.Email, 0
		}
	}
	if c.AuthorID != 0 {
		return "", c.AuthorID
	}
	if c.Author != nil {
		return "", c.Author.ID
	}
	return "", 0
}

// Count returns the number of comments in a forest.
func Count(roots []*models.Comment) int {
	n := 0
	for _, r := range roots {
		n += 1 + Count(r.Children)
	}
	return n
}

// decodeAuthor reads a populated author object. Unpopulated relations (a bare
// id or null) yield nothing.
func decodeAuthor(raw json.RawMessage) (*models.CommentAuthor, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var ra rawAuthor
	if err := json.Unmarshal(raw, &ra); err != nil {
		return nil, false
	}
	id, _ := number(ra.ID)
	return &models.CommentAuthor{ID: id, Name: ra.Name, Email: ra.Email}, true
}

func number(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		return parseNumber(s)
	}
	return parseNumber(string(raw))
}

func parseNumber(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// reference reads a threadOf value: a number, a numeric string, or an object
// carrying an id.
func reference(raw json.RawMessage) (int64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var obj struct {
			ID json.RawMessage `json:"id"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return 0, false
		}
		return number(obj.ID)
	}
	return number(raw)
}
