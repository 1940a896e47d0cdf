package db

// SchemaSQL defines the kv table used for serialized client state.
// Keys are record ids, values are opaque serialized strings.
const SchemaSQL = `
DEFINE TABLE IF NOT EXISTS kvstore SCHEMAFULL;
DEFINE FIELD IF NOT EXISTS value ON kvstore TYPE string;
DEFINE FIELD IF NOT EXISTS updated_at ON kvstore TYPE datetime DEFAULT time::now();
`
