// Package tabbles extracts tag hierarchies from a Tabbles SQL database.
//
// Tabbles stores tags three levels deep: a tag on the file (the value), its
// parent tag (the key) and the parent's parent (the namespace). The
// extractor walks that chain with self-joins and returns the raw hierarchy
// for one file path.
package tabbles

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/muenster-imaging/tabblesync/annotate"
	"github.com/muenster-imaging/tabblesync/errors"
)

// identRe keeps the database selector safe for interpolation into the
// bracketed [db].[dbo] object names, which cannot be parameterized.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Client queries one Tabbles database.
type Client struct {
	db       *sql.DB
	database string
	log      *zap.SugaredLogger
}

// NewClient creates an extractor for the given Tabbles database
// (e.g. tabbles_production).
func NewClient(db *sql.DB, database string, log *zap.SugaredLogger) (*Client, error) {
	if !identRe.MatchString(database) {
		return nil, errors.NewConfigurationError("invalid tabbles database name %q", database)
	}
	return &Client{db: db, database: database, log: log}, nil
}

// hierarchyQuery resolves, for every tag on the file at the given path, the
// tag itself (value), its parent (key) and grandparent (namespace). Parents
// are LEFT JOINed: bare tags have a NULL grandparent. Ordered by namespace
// so that duplicate (key, value) rows collapse deterministically.
const hierarchyQuery = `
SELECT DISTINCT TAG3.name AS namespace_, TAG2.name AS key_, TAG1.name AS value_
FROM [%[1]s].[dbo].[file2] files
INNER JOIN [%[1]s].[dbo].[taggable_has_tag]
ON (files.[idTaggable] = [%[1]s].[dbo].[taggable_has_tag].id_taggable)
INNER JOIN [%[1]s].[dbo].[tag] TAG1
ON (TAG1.id = [%[1]s].[dbo].[taggable_has_tag].id_tag)
LEFT JOIN [%[1]s].[dbo].[tabble_is_child_of_tag_for_user] CHILD1
ON (CHILD1.id_tabble_child = TAG1.id_tabble)
LEFT JOIN [%[1]s].[dbo].[tag] TAG2
ON (TAG2.id = CHILD1.id_tag_parent)
LEFT JOIN [%[1]s].[dbo].[tabble_is_child_of_tag_for_user] CHILD2
ON (CHILD2.id_tabble_child = TAG2.id_tabble)
LEFT JOIN [%[1]s].[dbo].[tag] TAG3
ON (TAG3.id = CHILD2.id_tag_parent)
WHERE files.path LIKE @p1
ORDER BY namespace_`

// TagHierarchy returns the raw tag hierarchy for the file at path. The path
// must already be in Tabbles' Windows form (see NormalizePath). A path with
// no rows yields an empty hierarchy, not an error.
//
// When the same (key, value) pair appears under several namespaces the last
// row wins, matching the alphabetical namespace ordering of the query.
func (c *Client) TagHierarchy(ctx context.Context, path string) (annotate.Hierarchy, error) {
	query := fmt.Sprintf(hierarchyQuery, c.database)
	c.log.Debugw("Querying tabbles", "database", c.database, "path", path)

	rows, err := c.db.QueryContext(ctx, query, sql.Named("p1", path))
	if err != nil {
		return nil, errors.Wrapf(err, "tabbles query failed for path %q", path)
	}
	defer rows.Close()

	type record struct {
		namespace string
		key       string
		value     string
		dropped   bool
	}
	var records []record
	// last occurrence index per (key, value), for last-write-wins collapse
	last := make(map[annotate.Pair]int)

	for rows.Next() {
		var namespace, key sql.NullString
		var value string
		if err := rows.Scan(&namespace, &key, &value); err != nil {
			return nil, errors.Wrap(err, "failed to scan tabbles row")
		}
		if !key.Valid {
			// A tag with no parent at all carries nothing the annotation
			// model can hold.
			c.log.Debugw("Skipping parentless tag", "value", value)
			continue
		}

		pair := annotate.Pair{Key: key.String, Value: value}
		if i, ok := last[pair]; ok {
			records[i].dropped = true
		}
		last[pair] = len(records)
		records = append(records, record{
			namespace: namespace.String, // "" for NULL = no grandparent
			key:       key.String,
			value:     value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "tabbles row iteration failed")
	}

	hierarchy := make(annotate.Hierarchy)
	for _, r := range records {
		if r.dropped {
			continue
		}
		hierarchy.Add(r.namespace, r.key, r.value)
	}

	c.log.Debugw("Extracted tag hierarchy", "path", path, "namespaces", len(hierarchy))
	return hierarchy, nil
}
