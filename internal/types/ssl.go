package types

// Certificate classifications.
const (
	SSLSuccess      = "success"
	SSLExpiringSoon = "expiring soon"
	SSLDanger       = "danger"
	SSLError        = "error"
)

// SSLInfo is the last certificate inspection result of an SSL monitor. It is
// stored as JSON in the monitor's info column.
type SSLInfo struct {
	Host     string         `json:"host"`
	Type     string         `json:"type"`
	Reason   string         `json:"reason,omitempty"`
	ValidFor []string       `json:"validFor"`
	Subject  SSLSubject     `json:"subject"`
	Issuer   SSLIssuer      `json:"issuer"`
	Info     SSLInfoDetails `json:"info"`
}

type SSLSubject struct {
	Org        string `json:"org"`
	CommonName string `json:"common_name"`
	SANs       string `json:"sans"`
}

type SSLIssuer struct {
	Org        string `json:"org"`
	CommonName string `json:"common_name"`
	Country    string `json:"country"`
}

type SSLInfoDetails struct {
	ValidFrom       string `json:"validFrom"`
	ValidTo         string `json:"validTo"`
	DaysLeft        int    `json:"daysLeft"`
	BackgroundClass string `json:"backgroundClass"`
	ExpiresIn       string `json:"expiresIn,omitempty"`
}
