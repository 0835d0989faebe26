package validate

// DocsBaseURL is the root of the relayer error reference. Every link returned by
// DocsFor and PropertyError.Docs is an anchor below it.
var DocsBaseURL = "https://docs.zama.ai/protocol/relayer-sdk-guides/development-guide/errors"

// Anchor for responses that do not match their envelope.
const responseShapeAnchor = "invalid-response"

// DocsFor returns the documentation link for a failure label, or "" when the label
// is not part of the protocol.
func DocsFor(label string) string {
	if _, ok := StatusForLabel(label); !ok {
		return ""
	}
	return docsLink(label)
}

func docsLink(anchor string) string {
	if DocsBaseURL == "" {
		return ""
	}
	return DocsBaseURL + "#" + anchor
}
