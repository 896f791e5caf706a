package store

// schema is the catalog layout. It matches catalogs written by earlier
// versions so that any of them can be opened for search.
const schema = `
CREATE TABLE IF NOT EXISTS files (
	path          TEXT PRIMARY KEY,
	filename      TEXT,
	size          INTEGER,
	modified_time TEXT
)`

const upsertSQL = `INSERT OR REPLACE INTO files (path, filename, size, modified_time) VALUES (?, ?, ?, ?)`

const deleteSQL = `DELETE FROM files WHERE path = ?`

const searchSQL = `
SELECT path, filename, size, modified_time
FROM files
WHERE instr(casefold(filename), ?) > 0
LIMIT ?`
