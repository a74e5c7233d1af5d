// Package providers implements the GitHub OAuth2 identity provider used to
// authenticate users and snapshot their organization and team memberships.
package providers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/lsst-sqre/ltd-proxy/pkg/apis/sessions"
	"github.com/lsst-sqre/ltd-proxy/pkg/requests"
)

// ErrMissingCode is returned when Redeem is called with an empty code
var ErrMissingCode = errors.New("missing code")

// GitHubProvider holds the endpoints and credentials of the GitHub OAuth
// app used for login.
type GitHubProvider struct {
	ClientID     string
	ClientSecret string
	Scope        string

	// LoginURL is the authorization endpoint
	LoginURL *url.URL
	// RedeemURL is the token endpoint
	RedeemURL *url.URL
	// APIBaseURL is the base URL of the GitHub REST API
	APIBaseURL *url.URL

	// Client is the shared HTTP client for token and API calls
	Client *http.Client
}

// NewGitHubProvider creates a GitHubProvider with the github.com endpoints.
func NewGitHubProvider(clientID, clientSecret string, client *http.Client) *GitHubProvider {
	return &GitHubProvider{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scope:        "user:email read:org",
		LoginURL: &url.URL{
			Scheme: "https",
			Host:   "github.com",
			Path:   "/login/oauth/authorize",
		},
		RedeemURL: &url.URL{
			Scheme: "https",
			Host:   "github.com",
			Path:   "/login/oauth/access_token",
		},
		APIBaseURL: &url.URL{
			Scheme: "https",
			Host:   "api.github.com",
			Path:   "/",
		},
		Client: client,
	}
}

func getGitHubHeader(accessToken string) http.Header {
	header := make(http.Header)
	header.Set("Accept", "application/vnd.github.v3+json")
	header.Set("Authorization", fmt.Sprintf("token %s", accessToken))
	return header
}

// GetLoginURL builds the authorization URL the user is redirected to.
func (p *GitHubProvider) GetLoginURL(redirectURI, state string) string {
	a := *p.LoginURL
	params, _ := url.ParseQuery(a.RawQuery)
	params.Set("client_id", p.ClientID)
	params.Set("redirect_uri", redirectURI)
	params.Set("response_type", "code")
	params.Set("scope", p.Scope)
	params.Set("state", state)
	a.RawQuery = params.Encode()
	return a.String()
}

// Redeem exchanges an authorization code for an access token. GitHub
// answers form encoded by default but JSON when asked, so both are tried.
func (p *GitHubProvider) Redeem(ctx context.Context, redirectURL, code string) (string, error) {
	if code == "" {
		return "", ErrMissingCode
	}

	params := url.Values{}
	params.Add("redirect_uri", redirectURL)
	params.Add("client_id", p.ClientID)
	params.Add("client_secret", p.ClientSecret)
	params.Add("code", code)
	params.Add("grant_type", "authorization_code")

	result := requests.New(p.RedeemURL.String()).
		WithContext(ctx).
		WithClient(p.Client).
		WithMethod("POST").
		WithBody(bytes.NewBufferString(params.Encode())).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		Do()
	if result.Error() != nil {
		return "", result.Error()
	}

	var jsonResponse struct {
		AccessToken string `json:"access_token"`
	}
	err := result.UnmarshalInto(&jsonResponse)
	if err == nil && jsonResponse.AccessToken != "" {
		return jsonResponse.AccessToken, nil
	}

	values, err := url.ParseQuery(string(result.Body()))
	if err != nil {
		return "", err
	}
	if token := values.Get("access_token"); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("no access token found %s", result.Body())
}

// GetUser returns the authenticated user's login name.
func (p *GitHubProvider) GetUser(ctx context.Context, accessToken string) (string, error) {
	// https://docs.github.com/en/rest/users#get-the-authenticated-user
	endpoint := &url.URL{
		Scheme: p.APIBaseURL.Scheme,
		Host:   p.APIBaseURL.Host,
		Path:   path.Join(p.APIBaseURL.Path, "/user"),
	}

	var user struct {
		Login string `json:"login"`
	}
	err := requests.New(endpoint.String()).
		WithContext(ctx).
		WithClient(p.Client).
		WithHeaders(getGitHubHeader(accessToken)).
		Do().
		UnmarshalInto(&user)
	if err != nil {
		return "", err
	}
	return user.Login, nil
}

// GetMemberships fetches the user's organization and team memberships and
// filters them down to the organizations and teams the access policy
// actually names. Only the filtered snapshot is stored in the session.
func (p *GitHubProvider) GetMemberships(ctx context.Context, accessToken string, relevantOrgs map[string]struct{}, relevantTeams map[sessions.TeamMembership]struct{}) (*sessions.Memberships, error) {
	orgs, err := p.getOrgs(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	teams, err := p.getTeams(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	m := &sessions.Memberships{}
	for _, org := range orgs {
		if _, ok := relevantOrgs[org]; ok {
			m.Orgs = append(m.Orgs, org)
		}
	}
	for _, team := range teams {
		if _, ok := relevantTeams[team]; ok {
			m.Teams = append(m.Teams, team)
		}
	}
	return m, nil
}

// getOrgs lists the login names of the organizations the user is an
// active member of.
func (p *GitHubProvider) getOrgs(ctx context.Context, accessToken string) ([]string, error) {
	// https://docs.github.com/en/rest/orgs/members#list-organization-memberships-for-the-authenticated-user
	var orgs []string

	type membershipsPage []struct {
		State string `json:"state"`
		Org   struct {
			Login string `json:"login"`
		} `json:"organization"`
	}

	pn := 1
	for {
		params := url.Values{
			"per_page": {"100"},
			"page":     {strconv.Itoa(pn)},
		}

		endpoint := &url.URL{
			Scheme:   p.APIBaseURL.Scheme,
			Host:     p.APIBaseURL.Host,
			Path:     path.Join(p.APIBaseURL.Path, "/user/memberships/orgs"),
			RawQuery: params.Encode(),
		}

		var mp membershipsPage
		err := requests.New(endpoint.String()).
			WithContext(ctx).
			WithClient(p.Client).
			WithHeaders(getGitHubHeader(accessToken)).
			Do().
			UnmarshalInto(&mp)
		if err != nil {
			return nil, err
		}
		if len(mp) == 0 {
			break
		}

		for _, membership := range mp {
			if membership.State == "active" {
				orgs = append(orgs, membership.Org.Login)
			}
		}
		pn++
	}

	return orgs, nil
}

// getTeams lists the user's teams as (org, team) pairs. Both the team's
// display name and its slug are reported since policy files may use
// either.
func (p *GitHubProvider) getTeams(ctx context.Context, accessToken string) ([]sessions.TeamMembership, error) {
	// https://docs.github.com/en/rest/teams/teams#list-teams-for-the-authenticated-user
	var teams []sessions.TeamMembership

	type teamsPage []struct {
		Name string `json:"name"`
		Slug string `json:"slug"`
		Org  struct {
			Login string `json:"login"`
		} `json:"organization"`
	}

	pn := 1
	for {
		params := url.Values{
			"per_page": {"100"},
			"page":     {strconv.Itoa(pn)},
		}

		endpoint := &url.URL{
			Scheme:   p.APIBaseURL.Scheme,
			Host:     p.APIBaseURL.Host,
			Path:     path.Join(p.APIBaseURL.Path, "/user/teams"),
			RawQuery: params.Encode(),
		}

		var tp teamsPage
		err := requests.New(endpoint.String()).
			WithContext(ctx).
			WithClient(p.Client).
			WithHeaders(getGitHubHeader(accessToken)).
			Do().
			UnmarshalInto(&tp)
		if err != nil {
			return nil, err
		}
		if len(tp) == 0 {
			break
		}

		for _, team := range tp {
			teams = append(teams, sessions.TeamMembership{Org: team.Org.Login, Team: team.Slug})
			if team.Name != team.Slug {
				teams = append(teams, sessions.TeamMembership{Org: team.Org.Login, Team: team.Name})
			}
		}
		pn++
	}

	return teams, nil
}
