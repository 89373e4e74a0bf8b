package secrets

// Severities used by the default rules.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
)

// DefaultRules returns rules for credentials that can surface while
// talking to Dataverse and Entra ID.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:          "bearer-token",
			Description: "HTTP bearer token",
			Pattern:     `(?i)bearer\s+[A-Za-z0-9\-._~+/]{16,}=*`,
			Keywords:    []string{"bearer"},
			Severity:    SeverityHigh,
		},
		{
			ID:          "jwt",
			Description: "JSON Web Token",
			Pattern:     `eyJ[A-Za-z0-9_-]{10,}\.eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "azure-ad-client-secret",
			Description: "Entra ID application client secret",
			Pattern:     `[A-Za-z0-9_~.\-]{3}\dQ~[A-Za-z0-9_~.\-]{31,34}`,
			Keywords:    []string{"Q~"},
			Severity:    SeverityHigh,
		},
		{
			ID:          "client-secret-param",
			Description: "OAuth client_secret parameter",
			Pattern:     `(?i)client_?secret["']?\s*[:=]\s*["']?[^\s"'&;,]{8,}`,
			Keywords:    []string{"secret"},
			Severity:    SeverityHigh,
		},
		{
			ID:          "dataverse-connection-string",
			Description: "Dataverse connection string credential",
			Pattern:     `(?i)(?:ClientSecret|Password)\s*=\s*[^;'"\s]{4,}`,
			Keywords:    []string{"AuthType", "ClientSecret", "Password"},
			Severity:    SeverityHigh,
		},
		{
			ID:          "azure-sas-signature",
			Description: "Azure storage SAS signature",
			Pattern:     `(?i)[?&]sig=[A-Za-z0-9%/+]{20,}={0,2}`,
			Keywords:    []string{"sig="},
			Severity:    SeverityMedium,
		},
		{
			ID:          "private-key",
			Description: "Private key block",
			Pattern:     `-----BEGIN (?:RSA |EC |OPENSSH |)PRIVATE KEY-----`,
			Severity:    SeverityHigh,
		},
		{
			ID:          "generic-password",
			Description: "Generic password assignment",
			Pattern:     `(?i)(?:password|passwd|pwd)\s*[:=]\s*['"]?[^\s'"]{8,}`,
			Keywords:    []string{"pass", "pwd"},
			Severity:    SeverityMedium,
		},
	}
}
