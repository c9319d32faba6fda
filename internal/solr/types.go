package solr

// ResponseHeader is the envelope header every SOLR admin/query response
// carries; status 0 means success.
type ResponseHeader struct {
	Status int `json:"status"`
	QTime  int `json:"QTime"`
}

type errorBody struct {
	Msg      string   `json:"msg"`
	Code     int      `json:"code"`
	Metadata []string `json:"metadata"`
}

type envelope struct {
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Error          *errorBody     `json:"error"`
}

type configSetListResponse struct {
	ResponseHeader ResponseHeader `json:"responseHeader"`
	ConfigSets     []string       `json:"configSets"`
}

type collectionListResponse struct {
	ResponseHeader ResponseHeader `json:"responseHeader"`
	Collections    []string       `json:"collections"`
}

// Field describes one schema field managed through the Schema API.
//
// See: https://solr.apache.org/guide/solr/latest/indexing-guide/schema-api.html
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Stored      bool   `json:"stored"`
	Indexed     bool   `json:"indexed"`
	MultiValued bool   `json:"multiValued,omitempty"`
	Required    bool   `json:"required,omitempty"`
	DocValues   bool   `json:"docValues,omitempty"`
}

type addFieldMessage struct {
	Field Field `json:"add-field"`
}

type replaceFieldMessage struct {
	Field Field `json:"replace-field"`
}
