package utils

import (
	"errors"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
)

var (
	ErrTitleBlank          = errors.New("Issue标题不能为空")
	ErrTitleTooLong        = errors.New("Issue标题长度不能超过200个字符")
	ErrTitleContainsScript = errors.New("Issue标题不能包含脚本字符")
	ErrDescriptionTooLong  = errors.New("问题描述长度不能超过5000个字符")
	ErrInvalidDateFormat   = errors.New("日期格式无效，请使用 YYYY-MM-DD 或类似格式")
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
)

// strictPolicy 剥离所有HTML标签，用于识别标题中的脚本类字符
var strictPolicy = bluemonday.StrictPolicy()

// ValidateIssueTitle 校验Issue标题：非空、长度不超过200字符、不包含脚本类标记。
// 长度按字符（rune）计而非字节，中文标题同样以200字符为界。
func ValidateIssueTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleBlank
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	// 净化器会把普通文本做HTML实体转义，需要反转义后再比较，
	// 含 & < > 的纯文本标题不算脚本标记，只有真正被剥离的标签才算
	if html.UnescapeString(strictPolicy.Sanitize(title)) != title {
		return ErrTitleContainsScript
	}
	return nil
}

// ValidateIssueDescription 校验问题描述长度，空描述视为有效。
func ValidateIssueDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	return nil
}

// ParseDate 解析日期字符串，支持多种常见格式。
// 支持 YYYY-MM-DD, YYYY/MM/DD, YYYY-M-D, YYYY/M/D 等及其变体。
func ParseDate(dateStr string) (time.Time, error) {
	trimmedDateStr := strings.TrimSpace(dateStr)
	if trimmedDateStr == "" {
		return time.Time{}, ErrInvalidDateFormat // 空日期字符串视为无效
	}

	normalizedDateStr := strings.ReplaceAll(trimmedDateStr, "/", "-")

	// 包含补零和不补零的情况
	dateLayouts := []string{
		"2006-01-02", // YYYY-MM-DD
		"2006-1-2",   // YYYY-M-D
		"2006-01-2",  // YYYY-MM-D
		"2006-1-02",  // YYYY-M-DD
	}

	var parsedDate time.Time
	var err error

	for _, layout := range dateLayouts {
		parsedDate, err = time.Parse(layout, normalizedDateStr)
		if err == nil {
			return parsedDate, nil // 解析成功，立即返回
		}
	}
	// 所有格式尝试完毕后仍失败
	return time.Time{}, ErrInvalidDateFormat
}
