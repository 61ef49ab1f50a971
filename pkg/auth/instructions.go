package auth

import (
	"fmt"
	"io"
	"strings"
)

// TokenURL is where a signed-in iNaturalist user can generate an API token
const TokenURL = "https://www.inaturalist.org/users/api_token"

// ShowTokenGuide writes instructions for obtaining an API token to w
func ShowTokenGuide(w io.Writer) {
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w, "iNaturalist API token")
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Public observation queries work without a token. A token only")
	fmt.Fprintln(w, "identifies your requests to iNaturalist.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  1. Sign in at https://www.inaturalist.org")
	fmt.Fprintf(w, "  2. Open %s\n", TokenURL)
	fmt.Fprintln(w, "  3. Copy the api_token value from the JSON shown")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Tokens expire after 24 hours; run `inatscraper auth login` again")
	fmt.Fprintln(w, "when requests start failing with 401.")
	fmt.Fprintln(w, strings.Repeat("=", 72))
}
