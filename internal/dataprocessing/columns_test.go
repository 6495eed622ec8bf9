package dataprocessing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFileAColumns(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		mapping  map[string]string
		expected FileAColumns
		missing  []string
	}{
		{
			name:     "standard chinese headers",
			headers:  []string{"交易時間", "帳號", "摘要", "支出金額", "存入金額"},
			expected: FileAColumns{Timestamp: 0, Account: 1, Expense: 3, Income: 4},
		},
		{
			name:     "english headers case insensitive",
			headers:  []string{"Timestamp", "ACCOUNT", "Expense", "Income"},
			expected: FileAColumns{Timestamp: 0, Account: 1, Expense: 2, Income: 3},
		},
		{
			name:     "headers with surrounding whitespace",
			headers:  []string{" 交易時間 ", "  帳號", "支出金額  ", " 存入金額 "},
			expected: FileAColumns{Timestamp: 0, Account: 1, Expense: 2, Income: 3},
		},
		{
			name:    "custom timestamp header without override fails",
			headers: []string{"CustomTime", "帳號", "支出金額", "存入金額"},
			missing: []string{"交易時間/timestamp"},
		},
		{
			name:     "custom timestamp header with override resolves",
			headers:  []string{"CustomTime", "帳號", "支出金額", "存入金額"},
			mapping:  map[string]string{FieldTimestamp: "CustomTime"},
			expected: FileAColumns{Timestamp: 0, Account: 1, Expense: 2, Income: 3},
		},
		{
			name:    "all fields missing reported together",
			headers: []string{"甲", "乙", "丙"},
			missing: []string{"交易時間/timestamp", "帳號/account", "支出金額/expense", "存入金額/income"},
		},
		{
			name:     "first matching column wins over later duplicate",
			headers:  []string{"交易時間", "帳號", "帳號", "支出金額", "存入金額"},
			expected: FileAColumns{Timestamp: 0, Account: 1, Expense: 3, Income: 4},
		},
		{
			name:     "override falls back to candidates when target absent",
			headers:  []string{"交易時間", "帳號", "支出金額", "存入金額"},
			mapping:  map[string]string{FieldTimestamp: "NotThere"},
			expected: FileAColumns{Timestamp: 0, Account: 1, Expense: 2, Income: 3},
		},
		{
			name:     "income alternate candidate",
			headers:  []string{"時間", "account_id", "支出", "收入金額"},
			expected: FileAColumns{Timestamp: 0, Account: 1, Expense: 2, Income: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ResolveFileAColumns(tt.headers, tt.mapping)
			if len(tt.missing) > 0 {
				var colErr *ColumnError
				require.ErrorAs(t, err, &colErr)
				assert.Equal(t, tt.missing, colErr.Missing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cols)
		})
	}
}

func TestResolveFileBColumns(t *testing.T) {
	tests := []struct {
		name     string
		headers  []string
		mapping  map[string]string
		expected FileBColumns
		missing  []string
	}{
		{
			name:     "standard chinese headers",
			headers:  []string{"登入時間", "帳號", "IP位址"},
			expected: FileBColumns{Timestamp: 0, Account: 1, IPAddress: 2},
		},
		{
			name:     "english variants",
			headers:  []string{"timestamp", "account", "IP Address"},
			expected: FileBColumns{Timestamp: 0, Account: 1, IPAddress: 2},
		},
		{
			name:    "missing ip column",
			headers: []string{"登入時間", "帳號", "裝置"},
			missing: []string{"IP位址/address"},
		},
		{
			name:     "override binds ip column",
			headers:  []string{"登入時間", "帳號", "來源位址"},
			mapping:  map[string]string{FieldIPAddress: "來源位址"},
			expected: FileBColumns{Timestamp: 0, Account: 1, IPAddress: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cols, err := ResolveFileBColumns(tt.headers, tt.mapping)
			if len(tt.missing) > 0 {
				var colErr *ColumnError
				require.ErrorAs(t, err, &colErr)
				assert.Equal(t, tt.missing, colErr.Missing)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cols)
		})
	}
}

func TestColumnErrorMessage(t *testing.T) {
	err := &ColumnError{Missing: []string{"交易時間/timestamp", "帳號/account"}}
	assert.Equal(t, "missing required columns: 交易時間/timestamp, 帳號/account", err.Error())

	var target *ColumnError
	assert.True(t, errors.As(error(err), &target))
}
