package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

// LeadSchema is the JSON Schema every lead payload must satisfy once merged.
//
//go:embed lead_schema.json
var LeadSchema []byte
