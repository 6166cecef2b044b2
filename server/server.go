package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/julienschmidt/httprouter"

	"rincewind/logger"
	"rincewind/server/cache"
	"rincewind/server/dao"
	"rincewind/server/dispatch"
	"rincewind/server/errors"
	"rincewind/server/noti"
	"rincewind/server/render"
	"rincewind/server/store"
	"rincewind/utils"
)

//Rincewind server description
type RincewindServer struct {
	addr, port, root string
	db               string
	s                *http.Server

	registry   *dao.Registry
	dataStore  dao.Store
	dispatcher *dispatch.Dispatcher
	notifiers  []noti.Notifier
}

func New(host string, port string, urlPrefix string, databaseConnectionUrl string) *RincewindServer {
	return &RincewindServer{addr: host, port: port, root: urlPrefix, db: databaseConnectionUrl, registry: dao.NewRegistry()}
}

func (rs *RincewindServer) SetAddr(a string) {
	rs.addr = a
}

func (rs *RincewindServer) SetPort(p string) {
	rs.port = p
}

func (rs *RincewindServer) SetRoot(r string) {
	rs.root = r
}

//Registry exposes the Dao registry so the hosting application can register
//its entity types before Setup.
func (rs *RincewindServer) Registry() *dao.Registry {
	return rs.registry
}

func (rs *RincewindServer) AddNotifier(notifier noti.Notifier) {
	rs.notifiers = append(rs.notifiers, notifier)
}

//Store returns the backing store the configuration selects: Postgres when a
//connection URL is configured, a JSON file store otherwise. Dao factories
//registered by the hosting application build their Daos over it.
func (rs *RincewindServer) Store() (dao.Store, error) {
	if rs.dataStore != nil {
		return rs.dataStore, nil
	}
	if rs.db != "" {
		sqlStore, err := store.NewSqlStore(rs.db)
		if err != nil {
			return nil, err
		}
		rs.dataStore = sqlStore
		return rs.dataStore, nil
	}
	logger.Info("No database connection URL configured, using the file store")
	rs.dataStore = store.NewFileStore("data")
	return rs.dataStore, nil
}

func (rs *RincewindServer) Setup(appConfig *utils.AppConfig) *http.Server {
	if appConfig.SentryDsn != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: appConfig.SentryDsn}); err != nil {
			logger.Warn("Sentry initialization failed: %s", err.Error())
		}
	}

	if appConfig.NotificationUrl != "" {
		if notifier, err := noti.NewRestNotifier(appConfig.NotificationUrl); err == nil {
			rs.AddNotifier(notifier)
		} else {
			logger.Warn("Rest notifier unavailable: %s", err.Error())
		}
	}

	rs.dispatcher = dispatch.NewDispatcher(render.NewRenderer(appConfig.TemplatePath), rs.notifiers...)
	rs.dispatcher.Register(dispatch.NewDataController(rs.registry))

	if appConfig.RedisUrl != "" {
		if recordCache, err := cache.NewRecordCache(appConfig.RedisUrl); err == nil {
			rs.EnableRecordCache(recordCache)
		} else {
			logger.Warn("Record cache unavailable: %s", err.Error())
		}
	}

	router := httprouter.New()
	router.GET(rs.root+"/:controller/:action/*params", func(w http.ResponseWriter, req *http.Request, p httprouter.Params) {
		rs.dispatcher.Dispatch(w, req, p.ByName("controller"), p.ByName("action"), splitParams(p.ByName("params")))
	})
	router.GET(rs.root+"/:controller/:action", func(w http.ResponseWriter, req *http.Request, p httprouter.Params) {
		rs.dispatcher.Dispatch(w, req, p.ByName("controller"), p.ByName("action"), nil)
	})
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		returnError(w, errors.NewNotFoundError(errors.ErrNotFound, "No such route", nil))
	})

	rs.s = &http.Server{
		Addr:           rs.addr + ":" + rs.port,
		Handler:        router,
		ReadTimeout:    60 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	return rs.s
}

//Dispatcher exposes the dispatcher so applications can register their own
//controllers after Setup.
func (rs *RincewindServer) Dispatcher() *dispatch.Dispatcher {
	return rs.dispatcher
}

//EnableRecordCache attaches the cache to every Dao already materialized in
//the registry. Daos registered later attach it through their factories.
func (rs *RincewindServer) EnableRecordCache(recordCache dao.RecordCache) {
	for _, name := range rs.registry.Names() {
		if instance, err := rs.registry.Get(name); err == nil {
			instance.SetRecordCache(recordCache)
		}
	}
}

func splitParams(wildcard string) []string {
	trimmed := strings.Trim(wildcard, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func returnError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	if serverError, ok := err.(*errors.ServerError); ok {
		w.WriteHeader(serverError.Status)
		w.Write(serverError.Json())
		return
	}
	w.WriteHeader(http.StatusInternalServerError)
	w.Write(errors.NewFatalError(errors.ErrInternal, err.Error(), nil).Json())
}
