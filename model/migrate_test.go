package model_test

import (
	"testing"

	"github.com/kasuganosora/materialplanner/model"
	"github.com/kasuganosora/materialplanner/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	// Account
	acc := &model.Account{Name: "planner", QP: 1000, Costumes: datatypes.JSON(`[800100]`)}
	require.NoError(t, db.Create(acc).Error)
	assert.Greater(t, acc.ID, int64(0))

	var found model.Account
	require.NoError(t, db.First(&found, acc.ID).Error)
	assert.Equal(t, "planner", found.Name)
	assert.Equal(t, int64(1), found.Version)
	assert.JSONEq(t, `[800100]`, string(found.Costumes))

	// RosterServant
	rs := &model.RosterServant{AccountID: acc.ID, ServantID: 100, Skill1: 10}
	require.NoError(t, db.Create(rs).Error)
	assert.Greater(t, rs.ID, int64(0))

	// AccountItem
	require.NoError(t, db.Create(&model.AccountItem{AccountID: acc.ID, ItemID: 6001, Qty: 3}).Error)
	var items []model.AccountItem
	require.NoError(t, db.Where("account_id = ?", acc.ID).Find(&items).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 3, items[0].Qty)
}

func TestAutoMigrate_AccountItemUnique(t *testing.T) {
	db := testutil.SetupTestDB(t)

	require.NoError(t, db.Create(&model.AccountItem{AccountID: 1, ItemID: 6001, Qty: 1}).Error)
	assert.Error(t, db.Create(&model.AccountItem{AccountID: 1, ItemID: 6001, Qty: 2}).Error)
	assert.NoError(t, db.Create(&model.AccountItem{AccountID: 2, ItemID: 6001, Qty: 2}).Error)
}

func TestAutoMigrate_ImportLog(t *testing.T) {
	db := testutil.SetupTestDB(t)

	entry := &model.ImportLog{AccountID: 7, Version: 2, RosterSize: 3, Missing: datatypes.JSON(`[9999]`)}
	require.NoError(t, db.Create(entry).Error)

	var found model.ImportLog
	require.NoError(t, db.First(&found, entry.ID).Error)
	assert.Equal(t, int64(2), found.Version)
	assert.JSONEq(t, `[9999]`, string(found.Missing))
	assert.False(t, found.CreatedAt.IsZero())
}
