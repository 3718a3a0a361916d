package user

import "strconv"

// Ref はユーザーを指し示す識別子。IDまたはemailのいずれかで解決される。
type Ref struct {
	id    int64
	email string
	byID  bool
}

// RefFromIdentifier はパスパラメータ等の識別子からRefを生成する。
// 数字のみで構成される文字列はIDとして、それ以外はemailとして扱う。
func RefFromIdentifier(s string) Ref {
	if isDigits(s) {
		if id, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Ref{id: id, byID: true}
		}
	}
	return Ref{email: s}
}

// RefFromEmail は常にemailとして扱うRefを生成する。
// トークンのsubjectが数字のみでもIDとは解釈しない。
func RefFromEmail(email string) Ref {
	return Ref{email: email}
}

// RefFromID はIDを指すRefを生成する。
func RefFromID(id int64) Ref {
	return Ref{id: id, byID: true}
}

// ID はIDで解決するRefの場合にIDとtrueを返す。
func (r Ref) ID() (int64, bool) {
	return r.id, r.byID
}

// Email はemailで解決するRefの場合にemailとtrueを返す。
func (r Ref) Email() (string, bool) {
	return r.email, !r.byID
}

// String はログ出力用の表現を返す。
func (r Ref) String() string {
	if r.byID {
		return "id:" + strconv.FormatInt(r.id, 10)
	}
	return "email:" + r.email
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
