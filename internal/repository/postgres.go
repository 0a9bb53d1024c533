package repository

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/utxokit/utxokit/internal/models"
	"github.com/utxokit/utxokit/pkg/logger"
)

type PostgresDB struct {
	logger *logger.Logger

	Conn *gorm.DB
}

func NewPostgresDB(user, password, dbname, host string, port int, logger *logger.Logger) (models.Repository, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		host, user, password, dbname, port)

	// Configure GORM logger to suppress "record not found" messages
	gormLogger := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %s", err)
	}

	if err := db.AutoMigrate(&models.WatchedAddress{}, &models.SeenOutput{}, &models.BroadcastRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate models: %s", err)
	}
	logger.Info("Successfully connected to PostgreSQL!")
	return &PostgresDB{Conn: db, logger: logger}, nil
}

func (db *PostgresDB) Close() error {
	sqlDB, err := db.Conn.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %s", err)
	}
	return sqlDB.Close()
}

func (db *PostgresDB) AddWatchedAddress(watch *models.WatchedAddress) error {
	if err := db.Conn.Create(watch).Error; err != nil {
		return fmt.Errorf("failed to add watched address: %s", err)
	}

	return nil
}

func (db *PostgresDB) GetWatchedAddresses() ([]*models.WatchedAddress, error) {
	var watches []*models.WatchedAddress
	if err := db.Conn.Find(&watches).Error; err != nil {
		return nil, fmt.Errorf("failed to get watched addresses: %s", err)
	}

	return watches, nil
}

func (db *PostgresDB) IsWatched(address string) (bool, error) {
	var watch models.WatchedAddress
	if err := db.Conn.Where("address = ?", address).First(&watch).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if address is watched: %s", err)
	}

	return true, nil
}

func (db *PostgresDB) MarkOutputSeen(output *models.SeenOutput) error {
	db.logger.Debug("Marking output seen ", "outpoint ", output.Outpoint)
	if err := db.Conn.Create(output).Error; err != nil {
		return fmt.Errorf("failed to mark output seen: %s", err)
	}
	return nil
}

func (db *PostgresDB) IsOutputSeen(outpoint string) (bool, error) {
	var output models.SeenOutput
	if err := db.Conn.Where("outpoint = ?", outpoint).First(&output).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return false, nil
		}
		return false, fmt.Errorf("failed to check if output was seen: %s", err)
	}

	return true, nil
}

func (db *PostgresDB) RecordBroadcast(record *models.BroadcastRecord) error {
	db.logger.Debug("Recording broadcast ", "txid ", record.TxID)
	if err := db.Conn.Save(record).Error; err != nil {
		return fmt.Errorf("failed to record broadcast: %s", err)
	}
	return nil
}

func (db *PostgresDB) GetBroadcastRecord(txid string) (*models.BroadcastRecord, error) {
	var record models.BroadcastRecord
	if err := db.Conn.Where("txid = ?", txid).First(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to get broadcast record: %s", err)
	}

	return &record, nil
}
