package http

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/inconshreveable/log15"

	"github.com/go-git/go-billy/v6/osfs"
	"github.com/awesome-os/universal-git-sub008/plumbing/storer"
	"github.com/awesome-os/universal-git-sub008/plumbing/transport"
	"github.com/awesome-os/universal-git-sub008/storage"
	"github.com/awesome-os/universal-git-sub008/utils/ioutil"
)

type requestKey string

const (
	keyLog      requestKey = "log"
	keyRepo     requestKey = "repo"
	keyFile     requestKey = "file"
	keyService  requestKey = "service"
	keyStorer   requestKey = "storer"
	keyEndpoint requestKey = "endpoint"
)

// route pairs a URL pattern with the handler and, for the smart-HTTP
// endpoints, the transport.Service it serves.
type route struct {
	pattern *regexp.Regexp
	method  string
	handler http.HandlerFunc
	svc     transport.Service
}

var routes = []route{
	{regexp.MustCompile("(.*?)/HEAD$"), http.MethodGet, getTextFile, ""},
	{regexp.MustCompile("(.*?)/info/refs$"), http.MethodGet, getInfoRefs, ""},
	{regexp.MustCompile("(.*?)/objects/info/alternates$"), http.MethodGet, getTextFile, ""},
	{regexp.MustCompile("(.*?)/objects/info/http-alternates$"), http.MethodGet, getTextFile, ""},
	{regexp.MustCompile("(.*?)/objects/info/packs$"), http.MethodGet, getInfoPacks, ""},
	{regexp.MustCompile("(.*?)/objects/[0-9a-f]{2}/[0-9a-f]{38}$"), http.MethodGet, getLooseObject, ""},
	{regexp.MustCompile("(.*?)/objects/[0-9a-f]{2}/[0-9a-f]{62}$"), http.MethodGet, getLooseObject, ""},
	{regexp.MustCompile("(.*?)/objects/pack/pack-[0-9a-f]{40}\\.pack$"), http.MethodGet, getPackFile, ""},
	{regexp.MustCompile("(.*?)/objects/pack/pack-[0-9a-f]{64}\\.pack$"), http.MethodGet, getPackFile, ""},
	{regexp.MustCompile("(.*?)/objects/pack/pack-[0-9a-f]{40}\\.idx$"), http.MethodGet, getIdxFile, ""},
	{regexp.MustCompile("(.*?)/objects/pack/pack-[0-9a-f]{64}\\.idx$"), http.MethodGet, getIdxFile, ""},

	{regexp.MustCompile("(.*?)/git-upload-pack$"), http.MethodPost, serviceRpc, transport.UploadPackService},
	{regexp.MustCompile("(.*?)/git-receive-pack$"), http.MethodPost, serviceRpc, transport.ReceivePackService},
}

// DefaultLoader serves repositories rooted at the current working directory.
var DefaultLoader = transport.NewFilesystemLoader(osfs.New("."), false)

// HandlerOptions configures NewHandler.
type HandlerOptions struct {
	// Log receives one Info line per matched request (service, repo, file,
	// duration) and one Error line per failure. Defaults to a discard
	// logger, matching go-git's "silent unless told otherwise" stance.
	Log log15.Logger
	// Prefix is stripped from the request path before route matching.
	Prefix string
}

// NewHandler returns an http.HandlerFunc serving git repositories over the
// smart and dumb HTTP protocols. Dumb-HTTP endpoints require the repository
// storer to implement storer.FilesystemStorer and to have up to date server
// info files (see transport.UpdateServerInfo).
func NewHandler(loader transport.Loader, opts *HandlerOptions) http.HandlerFunc {
	if loader == nil {
		loader = DefaultLoader
	}
	if opts == nil {
		opts = &HandlerOptions{}
	}
	log := opts.Log
	if log == nil {
		log = discardLogger()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		urlPath := strings.TrimPrefix(r.URL.Path, opts.Prefix)

		for _, rt := range routes {
			m := rt.pattern.FindStringSubmatch(urlPath)
			if m == nil {
				continue
			}
			if r.Method != rt.method {
				renderStatusError(w, http.StatusMethodNotAllowed)
				return
			}

			repo := strings.TrimPrefix(m[1], "/")
			file := strings.Replace(urlPath, repo+"/", "", 1)

			ep, err := transport.NewEndpoint(repo)
			if err != nil {
				log.Error("bad endpoint", "repo", repo, "err", err)
				renderStatusError(w, http.StatusBadRequest)
				return
			}

			st, err := loader.Load(ep)
			if err != nil {
				log.Error("load repository", "repo", repo, "err", err)
				renderStatusError(w, http.StatusNotFound)
				return
			}

			reqLog := log.New("repo", repo, "service", rt.svc.Name(), "file", file)

			ctx := r.Context()
			ctx = context.WithValue(ctx, keyLog, reqLog)
			ctx = context.WithValue(ctx, keyRepo, repo)
			ctx = context.WithValue(ctx, keyFile, file)
			ctx = context.WithValue(ctx, keyService, rt.svc)
			ctx = context.WithValue(ctx, keyStorer, st)
			ctx = context.WithValue(ctx, keyEndpoint, ep)

			rt.handler(w, r.WithContext(ctx))
			reqLog.Info("request", "duration", time.Since(start))
			return
		}

		renderStatusError(w, http.StatusNotFound)
	}
}

func discardLogger() log15.Logger {
	l := log15.New()
	l.SetHandler(log15.DiscardHandler())
	return l
}

func requestLogger(ctx context.Context) log15.Logger {
	if l, ok := ctx.Value(keyLog).(log15.Logger); ok {
		return l
	}
	return discardLogger()
}

func serviceRpc(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := requestLogger(ctx)

	st, ok := ctx.Value(keyStorer).(storage.Storer)
	if !ok {
		renderStatusError(w, http.StatusInternalServerError)
		return
	}
	svc, ok := ctx.Value(keyService).(transport.Service)
	if !ok {
		renderStatusError(w, http.StatusInternalServerError)
		return
	}

	version := r.Header.Get("Git-Protocol")
	contentType := strings.ToLower(strings.TrimSpace(r.Header.Get("Content-Type")))
	expectedContentType := strings.ToLower(fmt.Sprintf("application/x-git-%s-request", svc.Name()))
	if contentType != expectedContentType {
		renderStatusError(w, http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", fmt.Sprintf("application/x-git-%s-result", svc.Name()))
	w.Header().Set("Connection", "Keep-Alive")
	w.Header().Set("Transfer-Encoding", "chunked")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	var reader io.ReadCloser
	var err error
	switch r.Header.Get("Content-Encoding") {
	case "gzip":
		reader, err = gzip.NewReader(r.Body)
		if err != nil {
			log.Error("gzip decode", "err", err)
			renderStatusError(w, http.StatusInternalServerError)
			return
		}
		defer reader.Close() //nolint:errcheck
	default:
		reader = r.Body
	}

	frw := &flushResponseWriter{ResponseWriter: w, log: log, chunkSize: defaultChunkSize}

	switch svc {
	case transport.UploadPackService:
		err = transport.UploadPack(ctx, st, reader, frw,
			&transport.UploadPackOptions{
				GitProtocol:   version,
				AdvertiseRefs: false,
				StatelessRPC:  true,
			})
	case transport.ReceivePackService:
		err = transport.ReceivePack(ctx, st, reader, frw,
			&transport.ReceivePackOptions{
				GitProtocol:   version,
				AdvertiseRefs: false,
				StatelessRPC:  true,
			})
	default:
		log.Error("unknown service", "service", svc.Name())
		renderStatusError(w, http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("serve request", "err", err)
		renderStatusError(w, http.StatusInternalServerError)
		return
	}
}

func sendFile(w http.ResponseWriter, r *http.Request, contentType string) {
	ctx := r.Context()
	log := requestLogger(ctx)

	st, ok := ctx.Value(keyStorer).(storage.Storer)
	if !ok {
		renderStatusError(w, http.StatusInternalServerError)
		return
	}
	fss, ok := st.(storer.FilesystemStorer)
	if !ok {
		renderStatusError(w, http.StatusNotFound)
		return
	}
	file, ok := ctx.Value(keyFile).(string)
	if !ok {
		renderStatusError(w, http.StatusInternalServerError)
		return
	}

	fs := fss.Filesystem()
	f, err := fs.Open(file)
	if err != nil {
		renderStatusError(w, http.StatusNotFound)
		return
	}
	defer f.Close() //nolint:errcheck

	stat, err := fs.Lstat(file)
	if err != nil || !stat.Mode().IsRegular() {
		renderStatusError(w, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", stat.Size()))
	w.Header().Set("Last-Modified", stat.ModTime().Format(http.TimeFormat))

	frw := &flushResponseWriter{ResponseWriter: w, log: log, chunkSize: defaultChunkSize}
	if _, err := io.Copy(frw, f); err != nil {
		log.Error("write response", "file", file, "err", err)
		renderStatusError(w, http.StatusInternalServerError)
		return
	}
}

func getTextFile(w http.ResponseWriter, r *http.Request) {
	hdrNocache(w)
	sendFile(w, r, "text/plain; charset=utf-8")
}

func getInfoRefs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := requestLogger(ctx)

	st, ok := ctx.Value(keyStorer).(storage.Storer)
	if !ok {
		renderStatusError(w, http.StatusInternalServerError)
		return
	}

	service := transport.Service(r.URL.Query().Get("service"))
	version := r.Header.Get("Git-Protocol")

	if service == "" {
		hdrNocache(w)
		sendFile(w, r, "text/plain; charset=utf-8")
		return
	}

	hdrNocache(w)
	w.Header().Set("Content-Type", fmt.Sprintf("application/x-git-%s-advertisement", service.Name()))

	var err error
	switch service {
	case transport.UploadPackService:
		err = transport.UploadPack(ctx, st, nil, ioutil.WriteNopCloser(w),
			&transport.UploadPackOptions{
				GitProtocol:   version,
				AdvertiseRefs: true,
				StatelessRPC:  true,
			},
		)
	case transport.ReceivePackService:
		err = transport.ReceivePack(ctx, st, nil, ioutil.WriteNopCloser(w),
			&transport.ReceivePackOptions{
				GitProtocol:   version,
				AdvertiseRefs: true,
				StatelessRPC:  true,
			},
		)
	}
	if err != nil {
		log.Error("advertise refs", "service", service.Name(), "err", err)
		renderStatusError(w, http.StatusInternalServerError)
		return
	}
}

func getInfoPacks(w http.ResponseWriter, r *http.Request) {
	hdrCacheForever(w)
	sendFile(w, r, "text/plain; charset=utf-8")
}

func getLooseObject(w http.ResponseWriter, r *http.Request) {
	hdrCacheForever(w)
	sendFile(w, r, "application/x-git-loose-object")
}

func getPackFile(w http.ResponseWriter, r *http.Request) {
	hdrCacheForever(w)
	sendFile(w, r, "application/x-git-packed-objects")
}

func getIdxFile(w http.ResponseWriter, r *http.Request) {
	hdrCacheForever(w)
	sendFile(w, r, "application/x-git-packed-objects-toc")
}

func renderStatusError(w http.ResponseWriter, code int) {
	http.Error(w, fmt.Sprintf("%d %s", code, http.StatusText(code)), code)
}

func hdrNocache(w http.ResponseWriter) {
	w.Header().Set("Expires", "Fri, 01 Jan 1980 00:00:00 GMT")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Cache-Control", "no-cache, max-age=0, must-revalidate")
}

func hdrCacheForever(w http.ResponseWriter) {
	now := time.Now()
	expires := now.Add(365 * 24 * time.Hour)
	w.Header().Set("Date", now.Format(http.TimeFormat))
	w.Header().Set("Expires", expires.Format(http.TimeFormat))
	w.Header().Set("Cache-Control", "public, max-age=31536000")
}
