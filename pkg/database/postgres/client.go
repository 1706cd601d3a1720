package pg

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

const driverName = "nrpgx"

// Config describes a connection pool to the journal database.
type Config struct {
	User     string
	Password string
	Host     string
	Port     int
	DbName   string

	// Enables IAM auth in place of Password. Only supported on provisioned
	// Aurora RDS clusters.
	UseAwsIam bool

	MaxOpenConnections int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// Open opens a pool according to the config.
func (c *Config) Open(awsConfig aws.Config) (*sql.DB, error) {
	var db *sql.DB
	var err error

	port := fmt.Sprintf("%d", c.Port)
	if c.UseAwsIam {
		db, err = NewWithAwsIam(c.User, c.Host, port, c.DbName, awsConfig)
	} else {
		db, err = NewWithUsernameAndPassword(c.User, c.Password, c.Host, port, c.DbName)
	}
	if err != nil {
		return nil, err
	}

	c.applyPoolLimits(db)
	return db, nil
}

func (c *Config) applyPoolLimits(db *sql.DB) {
	if c.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(c.MaxOpenConnections)
	}
	if c.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(c.MaxIdleConnections)
	}
	if c.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(c.ConnMaxLifetime)
	}
}

// OpenDSN opens a pool from a libpq style connection string or URL.
func OpenDSN(dsn string) (*sql.DB, error) {
	return open(dsn)
}

// NewWithAwsIam gets a DB connection pool using AWS IAM credentials
//
// https://docs.aws.amazon.com/AmazonRDS/latest/AuroraUserGuide/UsingWithRDS.IAMDBAuth.Connecting.Go.html
func NewWithAwsIam(username, hostname, port, dbname string, config aws.Config) (*sql.DB, error) {
	rdsClient := rds.New(config)

	endpoint := fmt.Sprintf("%s:%s", hostname, port)
	authToken, err := rdsutils.BuildAuthToken(endpoint, rdsClient.Region, username, rdsClient.Credentials)
	if err != nil {
		return nil, errors.Wrap(err, "error building rds auth token")
	}

	return open(fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		hostname, port, username, authToken, dbname,
	))
}

// NewWithUsernameAndPassword gets a DB connection pool using username/password
// credentials.
func NewWithUsernameAndPassword(username, password, hostname, port, dbname string) (*sql.DB, error) {
	// todo: enable SSL once the journal runs against a managed cluster
	return open(fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		username, password, hostname, port, dbname,
	))
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "error opening postgres pool")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "error connecting to postgres")
	}

	return db, nil
}
