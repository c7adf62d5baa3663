package transport

import "context"

// Getter fetches the decoded body of a URL. *Client satisfies it, tests substitute fakes.
type Getter interface {
	Get(ctx context.Context, url string, headers map[string]string) ([]byte, error)
}
