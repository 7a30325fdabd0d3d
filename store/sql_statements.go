package store

// Statement templates expand "{prefix}" to the table prefix of the Store,
// and per-table templates additionally expand "{table}" to each feature table.

// addRegionColumnStmt adds the region attribute populated by enrichment.
const addRegionColumnStmt = `
ALTER TABLE {table} ADD COLUMN IF NOT EXISTS region TEXT;
`

// osmIDIndexStmt indexes feature tables by OSM ID, which replication
// updates and deletes rows by.
const osmIDIndexStmt = `
CREATE INDEX IF NOT EXISTS {table}_osm_id_idx ON {table} (osm_id);
`

// polygonBoundaryIndexStmt supports the materialization of region boundaries.
const polygonBoundaryIndexStmt = `
CREATE INDEX IF NOT EXISTS {prefix}_polygon_admin_idx
    ON {prefix}_polygon (admin_level)
    WHERE boundary = 'administrative';
`

// createBoundariesStmt creates the region-boundary reference table
// against which enrichment jobs resolve containing regions.
const createBoundariesStmt = `
CREATE TABLE IF NOT EXISTS {prefix}_region_boundaries
(
    id               BIGINT   PRIMARY KEY,
    iso_code         TEXT     NOT NULL,
    update_frequency TEXT     NOT NULL DEFAULT 'daily',
    geom             GEOMETRY NOT NULL
);
`

// insertBoundariesStmt materializes level-2 administrative boundaries,
// preserving the update_frequency of previously known regions.
const insertBoundariesStmt = `
INSERT INTO {prefix}_region_boundaries (id, iso_code, geom)
SELECT DISTINCT ON (osm_id)
       osm_id,
       tags -> 'ISO3166-1',
       ST_Multi(way)
  FROM {prefix}_polygon
 WHERE boundary = 'administrative'
   AND admin_level = '2'
   AND tags ? 'ISO3166-1'
 ORDER BY osm_id, ST_Area(way) DESC
    ON CONFLICT (id) DO UPDATE
   SET iso_code = EXCLUDED.iso_code,
       geom     = EXCLUDED.geom;
`

// boundariesGeomIndexStmt indexes region boundaries for containment tests.
const boundariesGeomIndexStmt = `
CREATE INDEX IF NOT EXISTS {prefix}_region_boundaries_geom_idx
    ON {prefix}_region_boundaries USING GIST (geom);
`

// createUsersStmt creates the table of contributing users.
const createUsersStmt = `
CREATE TABLE IF NOT EXISTS {prefix}_users
(
    uid       BIGINT      PRIMARY KEY,
    user_name TEXT        NOT NULL,
    last_edit TIMESTAMPTZ
);
`

// upsertUsersStmt materializes users from the extended attributes retained
// by the loader on each feature table. The union of feature tables is
// appended to this statement by the Store.
const upsertUsersStmt = `
INSERT INTO {prefix}_users (uid, user_name, last_edit)
SELECT osm_uid,
       (array_agg(osm_user ORDER BY osm_timestamp DESC))[1],
       max(osm_timestamp::TIMESTAMPTZ)
  FROM ({features}) AS edits
 WHERE osm_uid IS NOT NULL
 GROUP BY osm_uid
    ON CONFLICT (uid) DO UPDATE
   SET user_name = EXCLUDED.user_name,
       last_edit = GREATEST({prefix}_users.last_edit, EXCLUDED.last_edit);
`

// userEditsSelect selects the extended attributes of one feature table.
const userEditsSelect = `SELECT osm_uid, osm_user, osm_timestamp FROM {table}`

// geomIndexStmt is a spatial index of a feature table.
const geomIndexStmt = `
CREATE INDEX IF NOT EXISTS {table}_way_idx ON {table} USING GIST (way);
`

// regionIndexStmt indexes the region attribute of a feature table.
const regionIndexStmt = `
CREATE INDEX IF NOT EXISTS {table}_region_idx ON {table} (region);
`

// userIndexStmt indexes the editing user of a feature table.
const userIndexStmt = `
CREATE INDEX IF NOT EXISTS {table}_osm_uid_idx ON {table} (osm_uid);
`

// analyzeStmt refreshes planner statistics of a table.
const analyzeStmt = `
ANALYZE {table};
`
