package core

// HTTP-related constants for REST operations

// HTTP Header Names
const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderUserAgent     = "User-Agent"
	// HeaderUserAgentOverride is folded into User-Agent. Browsers refuse to let
	// scripts set User-Agent directly, so older callers send this one instead.
	HeaderUserAgentOverride = "X-Airtable-User-Agent"
	HeaderApplicationID     = "X-Airtable-Application-Id"
	HeaderApiVersion        = "X-Api-Version"
)

// HTTP Content Types
const (
	ContentTypeJSON = "application/json"
)

// HTTP Authentication Types
const (
	AuthTypeBearer = "Bearer"
)

// Environment variables consulted while resolving a Config.
const (
	EnvApiKey      = "AIRTABLE_API_KEY"
	EnvEndpointUrl = "AIRTABLE_ENDPOINT_URL"
	EnvLogLevel    = "AIRTABLE_LOG"
)

// Query parameter names understood by the list records endpoint.
const (
	ParamFields                = "fields"
	ParamFilterByFormula       = "filterByFormula"
	ParamMaxRecords            = "maxRecords"
	ParamPageSize              = "pageSize"
	ParamOffset                = "offset"
	ParamSort                  = "sort"
	ParamView                  = "view"
	ParamCellFormat            = "cellFormat"
	ParamTimeZone              = "timeZone"
	ParamUserLocale            = "userLocale"
	ParamReturnFieldsByFieldId = "returnFieldsByFieldId"
	ParamRecordMetadata        = "recordMetadata"
)
