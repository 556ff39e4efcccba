package pubmed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/literature-watch/internal/domain"
	"github.com/helixir/literature-watch/internal/sources"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string, enabled bool) *Client {
	cfg := Config{
		BaseURL: serverURL,
		Enabled: enabled,
	}

	httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		BurstSize: 1000,
		UserAgent: "TestClient/1.0",
	})

	return NewWithHTTPClient(cfg, httpClient)
}

const sampleESearchJSON = `{
	"esearchresult": {
		"count": "2",
		"retmax": "2",
		"retstart": "0",
		"idlist": ["38012345", "38012346"]
	}
}`

const emptyESearchJSON = `{
	"esearchresult": {
		"count": "0",
		"retmax": "0",
		"retstart": "0",
		"idlist": []
	}
}`

const sampleEFetchXML = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">38012345</PMID>
      <Article>
        <Journal>
          <Title>Nature Medicine</Title>
        </Journal>
        <ArticleTitle>Long COVID outcomes after vaccination</ArticleTitle>
        <AuthorList CompleteYN="Y">
          <Author ValidYN="Y">
            <LastName>Smith</LastName>
            <ForeName>Jane</ForeName>
            <Initials>J</Initials>
          </Author>
          <Author ValidYN="Y">
            <LastName>Doe</LastName>
            <ForeName>Alan</ForeName>
            <Initials>A</Initials>
          </Author>
          <Author ValidYN="Y">
            <LastName>Roe</LastName>
            <ForeName>Bob</ForeName>
            <Initials>B</Initials>
          </Author>
          <Author ValidYN="Y">
            <LastName>Poe</LastName>
            <ForeName>Cat</ForeName>
            <Initials>C</Initials>
          </Author>
        </AuthorList>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <History>
        <PubMedPubDate PubStatus="received">
          <Year>2024</Year><Month>1</Month><Day>2</Day>
        </PubMedPubDate>
        <PubMedPubDate PubStatus="pubmed">
          <Year>2024</Year><Month>3</Month><Day>15</Day>
        </PubMedPubDate>
      </History>
      <PublicationStatus>ppublish</PublicationStatus>
      <ArticleIdList>
        <ArticleId IdType="pubmed">38012345</ArticleId>
        <ArticleId IdType="doi">10.1038/s41591-024-0001</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">38012346</PMID>
      <Article>
        <Journal>
          <Title></Title>
        </Journal>
        <ArticleTitle></ArticleTitle>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <History>
        <PubMedPubDate PubStatus="received">
          <Year>2024</Year><Month>2</Month><Day>1</Day>
        </PubMedPubDate>
        <PubMedPubDate PubStatus="accepted">
          <Year>2024</Year><Month>4</Month><Day>20</Day>
        </PubMedPubDate>
      </History>
      <PublicationStatus>aheadofprint</PublicationStatus>
      <ArticleIdList>
        <ArticleId IdType="pubmed">38012346</ArticleId>
      </ArticleIdList>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

// newMockEUtils serves canned esearch and efetch responses.
func newMockEUtils(t *testing.T, esearchJSON, efetchXML string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/esearch.fcgi":
			assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
			assert.Equal(t, "json", r.URL.Query().Get("retmode"))
			assert.Equal(t, "date", r.URL.Query().Get("sort"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(esearchJSON))
		case "/efetch.fcgi":
			assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
			assert.Equal(t, "xml", r.URL.Query().Get("retmode"))
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(efetchXML))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestNewClient(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		client := New(Config{Enabled: true})

		require.NotNil(t, client)
		assert.Equal(t, DefaultBaseURL, client.config.BaseURL)
		assert.Equal(t, DefaultRateLimit, client.config.RateLimit)
		assert.Equal(t, DefaultMaxAttempts, client.config.MaxAttempts)
		assert.Equal(t, DefaultRetryDelay, client.config.RetryDelay)
		assert.True(t, client.IsEnabled())
	})

	t.Run("single-shot config is preserved", func(t *testing.T) {
		client := New(Config{MaxAttempts: 1, Enabled: true})
		assert.Equal(t, 1, client.config.MaxAttempts)
	})

	t.Run("keeps custom config", func(t *testing.T) {
		client := New(Config{
			BaseURL:   "https://custom.example.org",
			APIKey:    "key123",
			RateLimit: 10,
			Enabled:   true,
		})

		assert.Equal(t, "https://custom.example.org", client.config.BaseURL)
		assert.Equal(t, "key123", client.config.APIKey)
		assert.Equal(t, 10.0, client.config.RateLimit)
	})
}

func TestClient_SourceType(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, domain.SourceTypePubMed, client.SourceType())
}

func TestClient_Name(t *testing.T) {
	client := New(Config{Enabled: true})
	assert.Equal(t, "PubMed", client.Name())
}

func TestClient_Search(t *testing.T) {
	t.Run("successful search", func(t *testing.T) {
		server := newMockEUtils(t, sampleESearchJSON, sampleEFetchXML)
		defer server.Close()

		client := newTestClient(server.URL, true)
		result, err := client.Search(context.Background(), sources.SearchParams{
			Query:          "long covid",
			Page:           1,
			ResultsPerPage: 100,
		})

		require.NoError(t, err)
		require.Len(t, result.Articles, 2)
		assert.Equal(t, 0, result.Dropped)
		assert.Equal(t, domain.SourceTypePubMed, result.Source)
		assert.Contains(t, result.RequestURL, "esearch.fcgi")
		assert.Contains(t, result.RequestURL, "term=long+covid")

		first := result.Articles[0]
		assert.Equal(t, "Long COVID outcomes after vaccination", first.Title)
		assert.Equal(t, "Nature Medicine", first.Journal)
		assert.Equal(t, "38012345", first.PMID)
		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), first.Date)
		assert.Equal(t, "https://doi.org/10.1038/s41591-024-0001", first.Link)
		assert.Equal(t, []string{"Smith J", "Doe A", "Roe B"}, first.Authors)
		assert.True(t, first.MoreAuthors)
	})

	t.Run("falls back to latest history date without pubmed status", func(t *testing.T) {
		server := newMockEUtils(t, sampleESearchJSON, sampleEFetchXML)
		defer server.Close()

		client := newTestClient(server.URL, true)
		result, err := client.Search(context.Background(), sources.SearchParams{
			Query:          "long covid",
			Page:           1,
			ResultsPerPage: 100,
		})

		require.NoError(t, err)
		require.Len(t, result.Articles, 2)

		second := result.Articles[1]
		assert.Equal(t, time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC), second.Date)
		assert.Equal(t, "No Title Available", second.Title)
		assert.Equal(t, "Unknown Journal", second.Journal)
		assert.Equal(t, domain.LinkNotAvailable, second.Link)
	})

	t.Run("pagination offsets the search", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/esearch.fcgi" {
				assert.Equal(t, "200", r.URL.Query().Get("retstart"))
				assert.Equal(t, "100", r.URL.Query().Get("retmax"))
				_, _ = w.Write([]byte(emptyESearchJSON))
				return
			}
			t.Errorf("unexpected path: %s", r.URL.Path)
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		result, err := client.Search(context.Background(), sources.SearchParams{
			Query:          "covid",
			Page:           3,
			ResultsPerPage: 100,
		})

		require.NoError(t, err)
		assert.Empty(t, result.Articles)
	})

	t.Run("empty result skips the fetch step", func(t *testing.T) {
		var efetchCalled bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/efetch.fcgi" {
				efetchCalled = true
			}
			_, _ = w.Write([]byte(emptyESearchJSON))
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		result, err := client.Search(context.Background(), sources.SearchParams{
			Query:          "nonexistent",
			Page:           1,
			ResultsPerPage: 100,
		})

		require.NoError(t, err)
		assert.Empty(t, result.Articles)
		assert.False(t, efetchCalled)
	})

	t.Run("drops records without parseable history dates", func(t *testing.T) {
		const badXML = `<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <PMID Version="1">38012345</PMID>
      <Article>
        <ArticleTitle>Broken record</ArticleTitle>
      </Article>
    </MedlineCitation>
    <PubmedData>
      <History>
        <PubMedPubDate PubStatus="pubmed">
          <Year>not-a-year</Year>
        </PubMedPubDate>
      </History>
    </PubmedData>
  </PubmedArticle>
</PubmedArticleSet>`

		server := newMockEUtils(t, sampleESearchJSON, badXML)
		defer server.Close()

		client := newTestClient(server.URL, true)
		result, err := client.Search(context.Background(), sources.SearchParams{
			Query:          "covid",
			Page:           1,
			ResultsPerPage: 100,
		})

		require.NoError(t, err)
		assert.Empty(t, result.Articles)
		assert.Equal(t, 1, result.Dropped)
	})

	t.Run("server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		client := newTestClient(server.URL, true)
		_, err := client.Search(context.Background(), sources.SearchParams{
			Query:          "covid",
			Page:           1,
			ResultsPerPage: 100,
		})

		require.Error(t, err)
	})

	t.Run("disabled client refuses to search", func(t *testing.T) {
		client := newTestClient("http://unused.example.org", false)
		_, err := client.Search(context.Background(), sources.SearchParams{Query: "covid"})
		require.Error(t, err)
	})

	t.Run("api key is forwarded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "secret-key", r.URL.Query().Get("api_key"))
			_, _ = w.Write([]byte(emptyESearchJSON))
		}))
		defer server.Close()

		httpClient := sources.NewHTTPClient(sources.HTTPClientConfig{
			RateLimit: 1000,
			BurstSize: 1000,
		})
		client := NewWithHTTPClient(Config{
			BaseURL: server.URL,
			APIKey:  "secret-key",
			Enabled: true,
		}, httpClient)

		_, err := client.Search(context.Background(), sources.SearchParams{
			Query:          "covid",
			Page:           1,
			ResultsPerPage: 100,
		})
		require.NoError(t, err)
	})
}

func TestExtractHistoryDate(t *testing.T) {
	t.Run("prefers the pubmed status entry", func(t *testing.T) {
		history := &History{PubMedPubDates: []PubMedPubDate{
			{PubStatus: "received", Year: "2024", Month: "1", Day: "1"},
			{PubStatus: "pubmed", Year: "2024", Month: "6", Day: "10"},
			{PubStatus: "accepted", Year: "2024", Month: "12", Day: "31"},
		}}

		date, err := extractHistoryDate(history)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), date)
	})

	t.Run("falls back to the maximum parseable date", func(t *testing.T) {
		history := &History{PubMedPubDates: []PubMedPubDate{
			{PubStatus: "received", Year: "2023", Month: "5", Day: "1"},
			{PubStatus: "accepted", Year: "2024", Month: "2", Day: "9"},
		}}

		date, err := extractHistoryDate(history)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 2, 9, 0, 0, 0, 0, time.UTC), date)
	})

	t.Run("missing month and day default to 1", func(t *testing.T) {
		history := &History{PubMedPubDates: []PubMedPubDate{
			{PubStatus: "pubmed", Year: "2024"},
		}}

		date, err := extractHistoryDate(history)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), date)
	})

	t.Run("nil history", func(t *testing.T) {
		_, err := extractHistoryDate(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedRecord)
	})

	t.Run("no parseable dates", func(t *testing.T) {
		history := &History{PubMedPubDates: []PubMedPubDate{
			{PubStatus: "received", Year: "junk"},
		}}

		_, err := extractHistoryDate(history)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrMalformedRecord)
	})
}

func TestFormatAuthorNames(t *testing.T) {
	t.Run("formats last name and initials", func(t *testing.T) {
		list := &AuthorList{Authors: []Author{
			{ValidYN: "Y", LastName: "Smith", Initials: "J"},
			{ValidYN: "Y", LastName: "Doe", Initials: "A"},
		}}

		assert.Equal(t, []string{"Smith J", "Doe A"}, formatAuthorNames(list))
	})

	t.Run("skips invalid authors", func(t *testing.T) {
		list := &AuthorList{Authors: []Author{
			{ValidYN: "N", LastName: "Ghost", Initials: "G"},
			{ValidYN: "Y", LastName: "Smith", Initials: "J"},
		}}

		assert.Equal(t, []string{"Smith J"}, formatAuthorNames(list))
	})

	t.Run("collective names pass through", func(t *testing.T) {
		list := &AuthorList{Authors: []Author{
			{ValidYN: "Y", CollectiveName: "COVID Research Consortium"},
		}}

		assert.Equal(t, []string{"COVID Research Consortium"}, formatAuthorNames(list))
	})

	t.Run("nil list", func(t *testing.T) {
		assert.Nil(t, formatAuthorNames(nil))
	})
}
