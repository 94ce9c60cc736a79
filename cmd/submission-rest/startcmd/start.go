/*
Copyright SecureKey Technologies Inc. All Rights Reserved.
SPDX-License-Identifier: Apache-2.0
*/

package startcmd

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/mux"
	"github.com/hyperledger/aries-framework-go/component/log"
	"github.com/hyperledger/aries-framework-go/component/storage/leveldb"
	"github.com/hyperledger/aries-framework-go/component/storageutil/mem"
	"github.com/hyperledger/aries-framework-go/spi/storage"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/controller"
	"github.com/hiero-ledger/identity-collaboration-hub-sub000/pkg/store/credential"
)

const (
	// api host flag.
	hubHostFlagName      = "api-host"
	hubHostEnvKey        = "IDHUB_API_HOST"
	hubHostFlagShorthand = "a"
	hubHostFlagUsage     = "Host Name:Port." +
		" Alternatively, this can be set with the following environment variable: " + hubHostEnvKey

	// api token flag.
	hubTokenFlagName      = "api-token"
	hubTokenEnvKey        = "IDHUB_API_TOKEN" // nolint:gosec
	hubTokenFlagShorthand = "t"
	hubTokenFlagUsage     = "Check for bearer token in the authorization header (optional)." +
		" Alternatively, this can be set with the following environment variable: " + hubTokenEnvKey

	databaseTypeFlagName      = "database-type"
	databaseTypeEnvKey        = "IDHUB_DATABASE_TYPE"
	databaseTypeFlagShorthand = "q"
	databaseTypeFlagUsage     = "The type of database holding credentials. " +
		"Supported options: mem, leveldb. " +
		" Alternatively, this can be set with the following environment variable: " + databaseTypeEnvKey

	databaseURLFlagName      = "database-url"
	databaseURLEnvKey        = "IDHUB_DATABASE_URL"
	databaseURLFlagShorthand = "v"
	databaseURLFlagUsage     = "The location of the database. Not needed if using memstore." +
		" For LevelDB, this is the database directory." +
		" Alternatively, this can be set with the following environment variable: " + databaseURLEnvKey

	databaseTimeoutFlagName  = "database-timeout"
	databaseTimeoutFlagUsage = "Total time in seconds to wait until the db is available before giving up." +
		" Default: " + databaseTimeoutDefault + " seconds." +
		" Alternatively, this can be set with the following environment variable: " + databaseTimeoutEnvKey
	databaseTimeoutEnvKey  = "IDHUB_DATABASE_TIMEOUT"
	databaseTimeoutDefault = "30"

	// credentials seed file flag.
	credentialsFileFlagName      = "credentials-file"
	credentialsFileEnvKey        = "IDHUB_CREDENTIALS_FILE"
	credentialsFileFlagShorthand = "f"
	credentialsFileFlagUsage     = "JSON file with an array of held credential records imported at startup (optional)." +
		" Alternatively, this can be set with the following environment variable: " + credentialsFileEnvKey

	// webhook url flag.
	hubWebhookFlagName      = "webhook-url"
	hubWebhookEnvKey        = "IDHUB_WEBHOOK_URL"
	hubWebhookFlagShorthand = "w"
	hubWebhookFlagUsage     = "URL to send submission notifications to." +
		" This flag can be repeated, allowing for multiple listeners." +
		" Alternatively, this can be set with the following environment variable (in CSV format): " + hubWebhookEnvKey

	// submission ttl flag.
	submissionTTLFlagName  = "submission-ttl"
	submissionTTLEnvKey    = "IDHUB_SUBMISSION_TTL"
	submissionTTLFlagUsage = "How long a built submission is kept for selection, e.g. 30m. Defaults to 30m." +
		" Alternatively, this can be set with the following environment variable: " + submissionTTLEnvKey

	// max concurrency flag.
	maxConcurrencyFlagName  = "max-concurrency"
	maxConcurrencyEnvKey    = "IDHUB_MAX_CONCURRENCY"
	maxConcurrencyFlagUsage = "Maximum concurrent candidate lookups per submission. Defaults to 8." +
		" Alternatively, this can be set with the following environment variable: " + maxConcurrencyEnvKey

	// log level.
	hubLogLevelFlagName  = "log-level"
	hubLogLevelEnvKey    = "IDHUB_LOG_LEVEL"
	hubLogLevelFlagUsage = "Log level." +
		" Possible values [INFO] [DEBUG] [ERROR] [WARNING] [CRITICAL] . Defaults to INFO if not set." +
		" Alternatively, this can be set with the following environment variable: " + hubLogLevelEnvKey

	hubTLSCertFileFlagName      = "tls-cert-file"
	hubTLSCertFileEnvKey        = "TLS_CERT_FILE"
	hubTLSCertFileFlagShorthand = "c"
	hubTLSCertFileFlagUsage     = "tls certificate file." +
		" Alternatively, this can be set with the following environment variable: " + hubTLSCertFileEnvKey

	hubTLSKeyFileFlagName      = "tls-key-file"
	hubTLSKeyFileEnvKey        = "TLS_KEY_FILE"
	hubTLSKeyFileFlagShorthand = "k"
	hubTLSKeyFileFlagUsage     = "tls key file." +
		" Alternatively, this can be set with the following environment variable: " + hubTLSKeyFileEnvKey

	databaseTypeMemOption     = "mem"
	databaseTypeLevelDBOption = "leveldb"
)

var (
	errMissingHost = errors.New("host not provided")
	logger         = log.New("identity-hub/submission-rest")
)

// HubParameters contains parameters for starting the submission REST server.
type HubParameters struct {
	server                  server
	host, token             string
	tlsCertFile, tlsKeyFile string
	credentialsFile         string
	webhookURLs             []string
	submissionTTL           time.Duration
	maxConcurrency          int
	dbParam                 *dbParam
}

type dbParam struct {
	dbType  string
	url     string
	timeout uint64
}

// nolint:gochecknoglobals
var supportedStorageProviders = map[string]func(url string) (storage.Provider, error){
	databaseTypeMemOption: func(_ string) (storage.Provider, error) { // nolint:unparam
		return mem.NewProvider(), nil
	},
	databaseTypeLevelDBOption: func(path string) (storage.Provider, error) { // nolint:unparam
		return leveldb.NewProvider(path), nil
	},
}

type server interface {
	ListenAndServe(host string, router http.Handler, certFile, keyFile string) error
}

// HTTPServer represents an actual server implementation.
type HTTPServer struct{}

// ListenAndServe starts the server using the standard Go HTTP server implementation.
func (s *HTTPServer) ListenAndServe(host string, router http.Handler, certFile, keyFile string) error {
	if certFile != "" && keyFile != "" {
		return http.ListenAndServeTLS(host, certFile, keyFile, router)
	}

	return http.ListenAndServe(host, router) // nolint:gosec
}

// Cmd returns the Cobra start command.
func Cmd(server server) (*cobra.Command, error) {
	startCmd := createStartCMD(server)

	createFlags(startCmd)

	return startCmd, nil
}

func createStartCMD(server server) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the submission server",
		Long:  `Start the presentation submission REST server`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := NewHubParameters(server, cmd)
			if err != nil {
				return err
			}

			return startHub(parameters)
		},
	}
}

// NewHubParameters reads the server parameters from flags falling back to environment variables.
func NewHubParameters(server server, cmd *cobra.Command) (*HubParameters, error) { // nolint:funlen
	logLevel, err := getUserSetVar(cmd, hubLogLevelFlagName, hubLogLevelEnvKey, true)
	if err != nil {
		return nil, err
	}

	if err = setLogLevel(logLevel); err != nil {
		return nil, err
	}

	host, err := getUserSetVar(cmd, hubHostFlagName, hubHostEnvKey, false)
	if err != nil {
		return nil, err
	}

	token, err := getUserSetVar(cmd, hubTokenFlagName, hubTokenEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbParam, err := getDBParam(cmd)
	if err != nil {
		return nil, err
	}

	credentialsFile, err := getUserSetVar(cmd, credentialsFileFlagName, credentialsFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	webhookURLs, err := getUserSetVars(cmd, hubWebhookFlagName, hubWebhookEnvKey, true)
	if err != nil {
		return nil, err
	}

	submissionTTL, err := getSubmissionTTL(cmd)
	if err != nil {
		return nil, err
	}

	maxConcurrency, err := getMaxConcurrency(cmd)
	if err != nil {
		return nil, err
	}

	tlsCertFile, err := getUserSetVar(cmd, hubTLSCertFileFlagName, hubTLSCertFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	tlsKeyFile, err := getUserSetVar(cmd, hubTLSKeyFileFlagName, hubTLSKeyFileEnvKey, true)
	if err != nil {
		return nil, err
	}

	return &HubParameters{
		server:          server,
		host:            host,
		token:           token,
		dbParam:         dbParam,
		credentialsFile: credentialsFile,
		webhookURLs:     webhookURLs,
		submissionTTL:   submissionTTL,
		maxConcurrency:  maxConcurrency,
		tlsCertFile:     tlsCertFile,
		tlsKeyFile:      tlsKeyFile,
	}, nil
}

func getDBParam(cmd *cobra.Command) (*dbParam, error) {
	dbParam := &dbParam{}

	var err error

	dbParam.dbType, err = getUserSetVar(cmd, databaseTypeFlagName, databaseTypeEnvKey, false)
	if err != nil {
		return nil, err
	}

	dbParam.url, err = getUserSetVar(cmd, databaseURLFlagName, databaseURLEnvKey, true)
	if err != nil {
		return nil, err
	}

	dbTimeout, err := getUserSetVar(cmd, databaseTimeoutFlagName, databaseTimeoutEnvKey, true)
	if err != nil {
		return nil, err
	}

	if dbTimeout == "" || dbTimeout == "0" {
		dbTimeout = databaseTimeoutDefault
	}

	t, err := strconv.Atoi(dbTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to parse db timeout %s: %w", dbTimeout, err)
	}

	dbParam.timeout = uint64(t)

	return dbParam, nil
}

func getSubmissionTTL(cmd *cobra.Command) (time.Duration, error) {
	v, err := getUserSetVar(cmd, submissionTTLFlagName, submissionTTLEnvKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		return 0, nil
	}

	ttl, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse submission ttl %s: %w", v, err)
	}

	return ttl, nil
}

func getMaxConcurrency(cmd *cobra.Command) (int, error) {
	v, err := getUserSetVar(cmd, maxConcurrencyFlagName, maxConcurrencyEnvKey, true)
	if err != nil {
		return 0, err
	}

	if v == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("failed to parse max concurrency %s: %w", v, err)
	}

	return n, nil
}

func createFlags(startCmd *cobra.Command) {
	// hub host flag
	startCmd.Flags().StringP(hubHostFlagName, hubHostFlagShorthand, "", hubHostFlagUsage)

	// hub token flag
	startCmd.Flags().StringP(hubTokenFlagName, hubTokenFlagShorthand, "", hubTokenFlagUsage)

	// db type
	startCmd.Flags().StringP(databaseTypeFlagName, databaseTypeFlagShorthand, "", databaseTypeFlagUsage)

	// db url
	startCmd.Flags().StringP(databaseURLFlagName, databaseURLFlagShorthand, "", databaseURLFlagUsage)

	// db timeout
	startCmd.Flags().StringP(databaseTimeoutFlagName, "", "", databaseTimeoutFlagUsage)

	// credentials seed file
	startCmd.Flags().StringP(credentialsFileFlagName, credentialsFileFlagShorthand, "", credentialsFileFlagUsage)

	// webhook url flag
	startCmd.Flags().StringSliceP(hubWebhookFlagName, hubWebhookFlagShorthand, []string{}, hubWebhookFlagUsage)

	// submission ttl
	startCmd.Flags().StringP(submissionTTLFlagName, "", "", submissionTTLFlagUsage)

	// max concurrency
	startCmd.Flags().StringP(maxConcurrencyFlagName, "", "", maxConcurrencyFlagUsage)

	// log level
	startCmd.Flags().StringP(hubLogLevelFlagName, "", "", hubLogLevelFlagUsage)

	// tls cert file
	startCmd.Flags().StringP(hubTLSCertFileFlagName,
		hubTLSCertFileFlagShorthand, "", hubTLSCertFileFlagUsage)

	// tls key file
	startCmd.Flags().StringP(hubTLSKeyFileFlagName,
		hubTLSKeyFileFlagShorthand, "", hubTLSKeyFileFlagUsage)
}

func getUserSetVar(cmd *cobra.Command, flagName, envKey string, isOptional bool) (string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	if isOptional || isSet {
		return value, nil
	}

	return "", errors.New("Neither " + flagName + " (command line flag) nor " + envKey +
		" (environment variable) have been set.")
}

func getUserSetVars(cmd *cobra.Command, flagName, envKey string, isOptional bool) ([]string, error) {
	if cmd.Flags().Changed(flagName) {
		value, err := cmd.Flags().GetStringSlice(flagName)
		if err != nil {
			return nil, fmt.Errorf(flagName+" flag not found: %s", err)
		}

		return value, nil
	}

	value, isSet := os.LookupEnv(envKey)

	var values []string

	if isSet {
		values = strings.Split(value, ",")
	}

	if isOptional || isSet {
		return values, nil
	}

	return nil, fmt.Errorf(" %s not set. "+
		"It must be set via either command line or environment variable", flagName)
}

func setLogLevel(logLevel string) error {
	if logLevel != "" {
		level, err := log.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("failed to parse log level '%s' : %w", logLevel, err)
		}

		log.SetLevel("", level)
		logger.Infof("logger level set to %s", logLevel)
	}

	return nil
}

func validateAuthorizationBearerToken(w http.ResponseWriter, r *http.Request, token string) bool {
	actHdr := r.Header.Get("Authorization")
	expHdr := "Bearer " + token

	if subtle.ConstantTimeCompare([]byte(actHdr), []byte(expHdr)) != 1 {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("Unauthorised.\n")) // nolint:gosec,errcheck

		return false
	}

	return true
}

func authorizationMiddleware(token string) mux.MiddlewareFunc {
	middleware := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if validateAuthorizationBearerToken(w, r, token) {
				next.ServeHTTP(w, r)
			}
		})
	}

	return middleware
}

func startHub(parameters *HubParameters) error {
	if parameters.host == "" {
		return errMissingHost
	}

	router, err := createRouter(parameters)
	if err != nil {
		return err
	}

	logger.Infof("Starting submission rest on host [%s]", parameters.host)

	// start server on given port and serve using given handlers
	handler := cors.New(
		cors.Options{
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodHead},
			AllowedHeaders: []string{"Origin", "Accept", "Content-Type", "X-Requested-With", "Authorization"},
		},
	).Handler(router)

	err = parameters.server.ListenAndServe(parameters.host, handler, parameters.tlsCertFile, parameters.tlsKeyFile)
	if err != nil {
		return fmt.Errorf("failed to start submission rest on port [%s], cause:  %w", parameters.host, err)
	}

	return nil
}

func createRouter(parameters *HubParameters) (*mux.Router, error) {
	provider, err := createStoreProvider(parameters)
	if err != nil {
		return nil, err
	}

	if parameters.credentialsFile != "" {
		if err = importCredentials(provider, parameters.credentialsFile); err != nil {
			return nil, err
		}
	}

	opts := []controller.Opt{controller.WithWebhookURLs(parameters.webhookURLs...)}

	if parameters.submissionTTL > 0 {
		opts = append(opts, controller.WithSubmissionTTL(parameters.submissionTTL))
	}

	if parameters.maxConcurrency > 0 {
		opts = append(opts, controller.WithMaxConcurrency(parameters.maxConcurrency))
	}

	// get all HTTP REST API handlers available for controller API
	handlers, err := controller.GetRESTHandlers(provider, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to start submission rest on port [%s], failed to get rest service api :  %w",
			parameters.host, err)
	}

	router := mux.NewRouter()

	if parameters.token != "" {
		router.Use(authorizationMiddleware(parameters.token))
	}

	for _, handler := range handlers {
		router.HandleFunc(handler.Path(), handler.Handle()).Methods(handler.Method())
	}

	return router, nil
}

// importCredentials seeds the credential store from a JSON array of records.
// Records already held are skipped so the same file can be used across restarts.
func importCredentials(provider storage.Provider, path string) error {
	data, err := os.ReadFile(path) // nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to read credentials file : %w", err)
	}

	var records []*credential.Record

	if err = json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("failed to parse credentials file : %w", err)
	}

	store, err := credential.New(provider)
	if err != nil {
		return err
	}

	for i, record := range records {
		if record == nil {
			return fmt.Errorf("failed to import credential at index %d : empty record", i)
		}

		err = store.Import(record)
		if errors.Is(err, credential.ErrDuplicateCredential) {
			logger.Debugf("credential '%s' is already held", record.ID)

			continue
		}

		if err != nil {
			return fmt.Errorf("failed to import credential '%s' : %w", record.ID, err)
		}
	}

	logger.Infof("imported %d credentials from %s", len(records), path)

	return nil
}

func createStoreProvider(parameters *HubParameters) (storage.Provider, error) {
	provider, supported := supportedStorageProviders[parameters.dbParam.dbType]
	if !supported {
		return nil, fmt.Errorf("database type not set to a valid type." +
			" run start --help to see the available options")
	}

	var store storage.Provider

	err := backoff.RetryNotify(
		func() error {
			var openErr error
			store, openErr = provider(parameters.dbParam.url)

			return openErr
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), parameters.dbParam.timeout),
		func(retryErr error, t time.Duration) {
			logger.Warnf(
				"failed to connect to storage, will sleep for %s before trying again : %s\n",
				t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to storage at %s : %w", parameters.dbParam.url, err)
	}

	return store, nil
}
