package intent

const promptTemplate = `你是一个意图识别专家。
你的任务是分析用户的输入，并从以下预定义的意图中选择一个最匹配的。

预定义意图列表:
1.  RAG_QA: 用户的问题需要从已提供的文档知识库中检索答案，通常涉及特定细节或文档内容。例如："根据这份PDF，公司去年的利润是多少？"、"这份报告提到了哪些挑战？"、"请根据附件告诉我有什么地方能够改进？"、"根据文件回答"
2.  GENERAL_QA: 用户的问题可以由通用知识回答，或者是不依赖于任何特定文档的闲聊和开放性问题。例如："你好"、"什么是人工智能？"、"帮我写一个Python函数。"、"请教我如何使用API链接大模型。"
3.  COURSE_MANAGEMENT: 用户询问关于课程、模块、项目进度或作业安排等结构化信息。例如："第三周的核心模块是什么？"、"意图识别系统是哪个模块的任务？"、"我想咨询课程相关内容。"
4.  SYSTEM_ACTION: 用户明确要求执行系统操作，例如新建会话或上传文件。例如："新建一个聊天。"、"我想上传文件。"、"如何保存聊天历史？"

请严格按照以下JSON格式返回你的判断结果。不要包含任何额外的解释或文本。
{
  "intent": "你的判断意图名称",
  "reason": "你做出此判断的简要原因"
}

用户输入:
`

// Prompt builds the classification request for message.
func Prompt(message string) string {
	return promptTemplate + message
}
