package feed

import (
	"context"
	"fmt"
	"net/http"
)

type Source interface {
	Fetch(ctx context.Context, sourceConfig *Config) ([]Story, error)
}

var (
	_ Source = (*GuardianClient)(nil)
	_ Source = (*NYTimesClient)(nil)
	_ Source = (*RSSClient)(nil)
)

// Sources dispatches a fetch to the client for the config's kind.
type Sources map[string]Source

type SourceKeys struct {
	Guardian string
	NYTimes  string
}

func NewSources(httpClient *http.Client, keys SourceKeys, userAgent string) Sources {
	return Sources{
		KindGuardian: NewGuardianClient(httpClient, keys.Guardian, userAgent),
		KindNYTimes:  NewNYTimesClient(httpClient, keys.NYTimes, userAgent),
		KindRSS:      NewRSSClient(httpClient, NewParser(), NewContentExtractor(), userAgent),
	}
}

func (s Sources) Fetch(ctx context.Context, sourceConfig *Config) ([]Story, error) {
	source, ok := s[sourceConfig.Kind]
	if !ok {
		return nil, fmt.Errorf("no client for source kind '%s'", sourceConfig.Kind)
	}
	return source.Fetch(ctx, sourceConfig)
}
