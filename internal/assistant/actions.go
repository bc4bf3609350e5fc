package assistant

import "strings"

const (
	replyNewSession = "好的，请点击左侧的“新建会话”按钮来开始一个新的话题。"
	replyUpload     = "请使用“上传文件”按钮来上传您需要参考的资料。"
	replyClear      = "如果您想清空当前聊天记录，请点击界面下方的“清空聊天”按钮。"
	replyUseButtons = "您好，系统操作（例如新建会话、上传文件）需要通过界面按钮完成。请使用相应按钮进行操作。"
)

var actionGroups = []struct {
	keywords []string
	reply    string
}{
	{[]string{"新建会话", "开始新会话", "创建新会话"}, replyNewSession},
	{[]string{"上传"}, replyUpload},
	{[]string{"删除", "清空"}, replyClear},
}

// systemActionReply picks the canned guidance for a system action request.
func systemActionReply(message string) string {
	lower := strings.ToLower(message)
	for _, g := range actionGroups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				return g.reply
			}
		}
	}
	return replyUseButtons
}
