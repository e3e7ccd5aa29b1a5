package adt

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Client exposes the ADT operation surface as thin delegations over the
// shared Session. Methods return backend payloads as generic values; richer
// parsing belongs to callers that need it.
type Client struct {
	*Session
}

// NewClient wraps a session with the ADT operation surface.
func NewClient(s *Session) *Client {
	return &Client{Session: s}
}

// --- repository ---

// SearchObject runs a quick search over the repository information system.
func (c *Client) SearchObject(ctx context.Context, query string, maxResults int) (any, error) {
	if maxResults <= 0 {
		maxResults = 100
	}

	q := url.Values{
		"operation":  {"quickSearch"},
		"query":      {query},
		"maxResults": {strconv.Itoa(maxResults)},
	}

	resp, err := c.request(ctx, http.MethodGet, "/sap/bc/adt/repository/informationsystem/search", q, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// ObjectStructure fetches the structure metadata of an object.
func (c *Client) ObjectStructure(ctx context.Context, objectURL string) (any, error) {
	resp, err := c.request(ctx, http.MethodGet, objectURL, url.Values{"version": {"active"}}, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// GetObjectSource fetches the source of an object include.
func (c *Client) GetObjectSource(ctx context.Context, sourceURL string) (string, error) {
	resp, err := c.request(ctx, http.MethodGet, sourceURL, nil, nil, "")
	if err != nil {
		return "", err
	}

	return string(resp.Body), nil
}

// SetObjectSource replaces the source of an object include. The object must
// be locked; the lock handle authorizes the write.
func (c *Client) SetObjectSource(ctx context.Context, sourceURL, source, lockHandle, transport string) (any, error) {
	q := url.Values{"lockHandle": {lockHandle}}
	if transport != "" {
		q.Set("corrNr", transport)
	}

	resp, err := c.request(ctx, http.MethodPut, sourceURL, q, []byte(source), "text/plain; charset=utf-8")
	if err != nil {
		return nil, err
	}

	return map[string]any{"updated": true, "status": resp.Status}, nil
}

// DeleteObject deletes an object. The object must be locked.
func (c *Client) DeleteObject(ctx context.Context, objectURL, lockHandle, transport string) (any, error) {
	q := url.Values{"lockHandle": {lockHandle}}
	if transport != "" {
		q.Set("corrNr", transport)
	}

	resp, err := c.request(ctx, http.MethodDelete, objectURL, q, nil, "")
	if err != nil {
		return nil, err
	}

	return map[string]any{"deleted": true, "status": resp.Status}, nil
}

// CreateObject creates a repository object of the given ADT type.
func (c *Client) CreateObject(ctx context.Context, objType, name, parentName, description, transport string) (any, error) {
	path, ok := creationPaths[objType]
	if !ok {
		return nil, NewInvalidParams(fmt.Sprintf("unsupported object type: %s", objType))
	}

	var q url.Values
	if transport != "" {
		q = url.Values{"corrNr": {transport}}
	}

	body := creationBody(objType, name, parentName, description)

	resp, err := c.request(ctx, http.MethodPost, path, q, body, "application/xml")
	if err != nil {
		return nil, err
	}

	return map[string]any{"created": true, "name": name, "status": resp.Status}, nil
}

// creationPaths maps ADT object types to their creation collections.
var creationPaths = map[string]string{
	"PROG/P":  "/sap/bc/adt/programs/programs",
	"PROG/I":  "/sap/bc/adt/programs/includes",
	"CLAS/OC": "/sap/bc/adt/oo/classes",
	"INTF/OI": "/sap/bc/adt/oo/interfaces",
	"FUGR/F":  "/sap/bc/adt/functions/groups",
	"DDLS/DF": "/sap/bc/adt/ddic/ddl/sources",
}

func creationBody(objType, name, parentName, description string) []byte {
	return []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><adtcore:objectReference xmlns:adtcore="http://www.sap.com/adt/core" adtcore:type="%s" adtcore:name="%s" adtcore:parentName="%s" adtcore:description="%s"/>`,
		xmlEscape(objType), xmlEscape(name), xmlEscape(parentName), xmlEscape(description)))
}

// --- locking ---

// LockResult carries the handle authorizing writes to a locked object.
type LockResult struct {
	LockHandle string `json:"lockHandle"`
	CorrNr     string `json:"corrNr,omitempty"`
	CorrUser   string `json:"corrUser,omitempty"`
}

// Lock takes a write lock on an object. Requires a stateful session: the
// server drops the lock when the session ends.
func (c *Client) Lock(ctx context.Context, objectURL string) (*LockResult, error) {
	if !c.Stateful() {
		return nil, ErrStatefulRequired
	}

	q := url.Values{"_action": {"LOCK"}, "accessMode": {"MODIFY"}}

	resp, err := c.request(ctx, http.MethodPost, objectURL, q, nil, "")
	if err != nil {
		return nil, err
	}

	return parseLockResult(resp.Body)
}

// Unlock releases a lock previously taken with Lock.
func (c *Client) Unlock(ctx context.Context, objectURL, lockHandle string) (any, error) {
	q := url.Values{"_action": {"UNLOCK"}, "lockHandle": {lockHandle}}

	resp, err := c.request(ctx, http.MethodPost, objectURL, q, nil, "")
	if err != nil {
		return nil, err
	}

	return map[string]any{"unlocked": true, "status": resp.Status}, nil
}

func parseLockResult(body []byte) (*LockResult, error) {
	var doc struct {
		Values struct {
			Data struct {
				LockHandle string `xml:"LOCK_HANDLE"`
				CorrNr     string `xml:"CORRNR"`
				CorrUser   string `xml:"CORRUSER"`
			} `xml:"DATA"`
		} `xml:"values"`
	}

	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, &Error{Code: CodeInternal, Message: fmt.Sprintf("parse lock response: %v", err)}
	}

	if doc.Values.Data.LockHandle == "" {
		return nil, &Error{Code: CodeInternal, Message: "lock response contained no lock handle"}
	}

	return &LockResult{
		LockHandle: doc.Values.Data.LockHandle,
		CorrNr:     doc.Values.Data.CorrNr,
		CorrUser:   doc.Values.Data.CorrUser,
	}, nil
}

// --- transports ---

// TransportInfo checks which transport options apply to an object.
func (c *Client) TransportInfo(ctx context.Context, objectURL, devClass string) (any, error) {
	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><asx:abap xmlns:asx="http://www.sap.com/abapxml" version="1.0"><asx:values><DATA><PGMID/><OBJECT/><OBJECTNAME/><DEVCLASS>%s</DEVCLASS><URI>%s</URI></DATA></asx:values></asx:abap>`,
		xmlEscape(devClass), xmlEscape(objectURL)))

	resp, err := c.request(ctx, http.MethodPost, "/sap/bc/adt/cts/transportchecks", nil, body, "application/vnd.sap.as+xml")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// CreateTransport creates a workbench transport request.
func (c *Client) CreateTransport(ctx context.Context, objectURL, description, devClass string) (any, error) {
	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><asx:abap xmlns:asx="http://www.sap.com/abapxml" version="1.0"><asx:values><DATA><OPERATION>I</OPERATION><DEVCLASS>%s</DEVCLASS><REQUEST_TEXT>%s</REQUEST_TEXT><URI>%s</URI></DATA></asx:values></asx:abap>`,
		xmlEscape(devClass), xmlEscape(description), xmlEscape(objectURL)))

	resp, err := c.request(ctx, http.MethodPost, "/sap/bc/adt/cts/transports", nil, body, "application/vnd.sap.as+xml")
	if err != nil {
		return nil, err
	}

	return map[string]any{"transport": string(resp.Body), "status": resp.Status}, nil
}

// TransportsOfUser lists the transport requests owned by a user.
func (c *Client) TransportsOfUser(ctx context.Context, user string) (any, error) {
	q := url.Values{"user": {user}, "targets": {"true"}}

	resp, err := c.request(ctx, http.MethodGet, "/sap/bc/adt/cts/transportrequests", q, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// ReleaseTransport releases a transport request.
func (c *Client) ReleaseTransport(ctx context.Context, transport string) (any, error) {
	path := "/sap/bc/adt/cts/transportrequests/" + url.PathEscape(transport) + "/newreleasejobs"

	resp, err := c.request(ctx, http.MethodPost, path, nil, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// --- checks & activation ---

// SyntaxCheck runs the ABAP syntax checker against the given source state.
func (c *Client) SyntaxCheck(ctx context.Context, objectURL, source string) (any, error) {
	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><chkrun:checkObjectList xmlns:chkrun="http://www.sap.com/adt/checkrun" xmlns:adtcore="http://www.sap.com/adt/core"><chkrun:checkObject adtcore:uri="%s" chkrun:version="active"><chkrun:artifacts><chkrun:artifact chkrun:contentType="text/plain; charset=utf-8" chkrun:uri="%s"><chkrun:content>%s</chkrun:content></chkrun:artifact></chkrun:artifacts></chkrun:checkObject></chkrun:checkObjectList>`,
		xmlEscape(objectURL), xmlEscape(objectURL), xmlEscape(source)))

	q := url.Values{"reporters": {"abapCheckRun"}}

	resp, err := c.request(ctx, http.MethodPost, "/sap/bc/adt/checkruns", q, body, "application/vnd.sap.adt.checkobjects+xml")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// Activate activates an inactive object.
func (c *Client) Activate(ctx context.Context, objectName, objectURL string) (any, error) {
	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><adtcore:objectReferences xmlns:adtcore="http://www.sap.com/adt/core"><adtcore:objectReference adtcore:uri="%s" adtcore:name="%s"/></adtcore:objectReferences>`,
		xmlEscape(objectURL), xmlEscape(objectName)))

	q := url.Values{"method": {"activate"}, "preauditRequested": {"true"}}

	resp, err := c.request(ctx, http.MethodPost, "/sap/bc/adt/activation", q, body, "application/xml")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// InactiveObjects lists the caller's inactive objects.
func (c *Client) InactiveObjects(ctx context.Context) (any, error) {
	resp, err := c.request(ctx, http.MethodGet, "/sap/bc/adt/activation/inactiveobjects", nil, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// --- ATC ---

// AtcCustomizing fetches the ATC customizing settings.
func (c *Client) AtcCustomizing(ctx context.Context) (any, error) {
	resp, err := c.request(ctx, http.MethodGet, "/sap/bc/adt/atc/customizing", nil, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// CreateAtcRun starts an ATC run for an object set and returns the worklist.
func (c *Client) CreateAtcRun(ctx context.Context, variant, objectURL string, maxResults int) (any, error) {
	if maxResults <= 0 {
		maxResults = 100
	}

	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><atc:run xmlns:atc="http://www.sap.com/adt/atc" maximumVerdicts="%d"><objectSets xmlns:adtcore="http://www.sap.com/adt/core"><objectSet kind="inclusive"><adtcore:objectReferences><adtcore:objectReference adtcore:uri="%s"/></adtcore:objectReferences></objectSet></objectSets></atc:run>`,
		maxResults, xmlEscape(objectURL)))

	q := url.Values{"worklistId": {variant}}

	resp, err := c.request(ctx, http.MethodPost, "/sap/bc/adt/atc/runs", q, body, "application/xml")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// AtcWorklists fetches the findings of an ATC worklist.
func (c *Client) AtcWorklists(ctx context.Context, worklistID string) (any, error) {
	path := "/sap/bc/adt/atc/worklists/" + url.PathEscape(worklistID)

	resp, err := c.request(ctx, http.MethodGet, path, url.Values{"includeExemptedFindings": {"false"}}, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// --- ABAP Unit ---

// UnitTestRun executes the unit tests of an object and returns the results.
func (c *Client) UnitTestRun(ctx context.Context, objectURL string) (any, error) {
	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><aunit:runConfiguration xmlns:aunit="http://www.sap.com/adt/aunit"><external><coverage active="false"/></external><adtcore:objectSets xmlns:adtcore="http://www.sap.com/adt/core"><objectSet kind="inclusive"><adtcore:objectReferences><adtcore:objectReference adtcore:uri="%s"/></adtcore:objectReferences></objectSet></adtcore:objectSets></aunit:runConfiguration>`,
		xmlEscape(objectURL)))

	resp, err := c.request(ctx, http.MethodPost, "/sap/bc/adt/abapunit/testruns", nil, body, "application/vnd.sap.adt.abapunit.testruns.config.v4+xml")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// --- abapGit ---

// GitRepos lists the abapGit repositories linked on the system.
func (c *Client) GitRepos(ctx context.Context) (any, error) {
	resp, err := c.request(ctx, http.MethodGet, "/sap/bc/adt/abapgit/repos", nil, nil, "")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// GitCreateRepo links a remote repository to a package and clones it.
func (c *Client) GitCreateRepo(ctx context.Context, packageName, repoURL, branch string) (any, error) {
	if branch == "" {
		branch = "refs/heads/main"
	}

	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><abapgitrepo:repository xmlns:abapgitrepo="http://www.sap.com/adt/abapgit/repositories"><abapgitrepo:package>%s</abapgitrepo:package><abapgitrepo:url>%s</abapgitrepo:url><abapgitrepo:branchName>%s</abapgitrepo:branchName></abapgitrepo:repository>`,
		xmlEscape(packageName), xmlEscape(repoURL), xmlEscape(branch)))

	resp, err := c.request(ctx, http.MethodPost, "/sap/bc/adt/abapgit/repos", nil, body, "application/abapgit.adt.repo.v3+xml")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

// GitPullRepo pulls a linked repository.
func (c *Client) GitPullRepo(ctx context.Context, repoKey, branch string) (any, error) {
	body := []byte(fmt.Sprintf(
		`<?xml version="1.0" encoding="UTF-8"?><abapgitexternalrepo:externalRepoInfoRequest xmlns:abapgitexternalrepo="http://www.sap.com/adt/abapgit/externalRepo"><abapgitexternalrepo:branchName>%s</abapgitexternalrepo:branchName></abapgitexternalrepo:externalRepoInfoRequest>`,
		xmlEscape(branch)))

	path := "/sap/bc/adt/abapgit/repos/" + url.PathEscape(repoKey) + "/pull"

	resp, err := c.request(ctx, http.MethodPost, path, nil, body, "application/abapgit.adt.repo.v3+xml")
	if err != nil {
		return nil, err
	}

	return resp.Value(), nil
}

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))

	return buf.String()
}
