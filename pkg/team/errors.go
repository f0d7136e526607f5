package team

import (
	"errors"

	"github.com/lwmacct/251219-go-pkg-santa/pkg/actor"
	"github.com/lwmacct/251219-go-pkg-santa/pkg/rendezvous"
)

// IsStopSignal 判断错误是否表示"应当退出循环"
//
// context 取消/超时，或同步点被打破（另一方已经退出）时返回 true。
// 这两类错误都不是失败，Worker 与 Coordinator 收到后正常返回 nil。
func IsStopSignal(err error) bool {
	return actor.IsContextError(err) || errors.Is(err, rendezvous.ErrBroken)
}
