package prompt

const enAction = `You are now playing the role of {{.Name}}.
Your strategy in this game is to {{.Behavior}}.

Game Rules:
{{.Rules}}

Available Actions:
{{range .Actions}}- {{.}}
{{end}}
Current Game State:
Current Round: {{.Round}}
{{- if .Previous}}

Previous Actions:
{{- range .Previous}}
- {{.Agent}}: {{.Value}}
{{- end}}
{{- end}}
{{- if .Payoffs}}

Last Round Payoffs:
{{- range .Payoffs}}
- {{.Agent}}: {{.Value}}
{{- end}}
{{- end}}
{{- if .Scores}}

Cumulative Scores:
{{- range .Scores}}
- {{.Agent}}: {{.Value}}
{{- end}}
{{- end}}

Based on the above information, please choose your next action. Your response should be in the following format:
<Action>chosen_action</Action>
Where chosen_action is one of the available actions.

You may include additional content in your response, but ensure the action is enclosed in <Action></Action> tags and can be parsed correctly.
`

const enReflection = `You are {{.Name}}, reflecting on the last round of the game.

Last Round Results:
- Your action: {{.MyAction}}
- Other players' actions:
{{- range .Others}}
  - {{.Agent}}: {{.Value}}
{{- end}}
- Payoffs:
{{- range .Payoffs}}
  - {{.Agent}}: {{.Value}}
{{- end}}

Game Rules:
{{.Rules}}

Please analyze the results and provide your strategic thoughts for the next round.
Your thoughts should relate to your behavior. Your behavior is: {{.Behavior}}.
Your response should be in the following format:
<Reflection>your_thoughts</Reflection>
`

const zhAction = `你现在需要扮演{{.Name}}。
你的游戏策略是{{.Behavior}}。

游戏规则：
{{.Rules}}

可用行动：
{{range .Actions}}- {{.}}
{{end}}
当前游戏状态：
当前回合：{{.Round}}
{{- if .Previous}}

上一回合行动：
{{- range .Previous}}
- {{.Agent}}：{{.Value}}
{{- end}}
{{- end}}
{{- if .Payoffs}}

上一回合收益：
{{- range .Payoffs}}
- {{.Agent}}：{{.Value}}
{{- end}}
{{- end}}
{{- if .Scores}}

累计得分：
{{- range .Scores}}
- {{.Agent}}：{{.Value}}
{{- end}}
{{- end}}

根据以上信息，请选择你的下一个行动。你的回复格式必须如下：
<Action>chosen_action</Action>
其中 chosen_action 是可用行动之一。

你可以在回复中添加额外内容，但需确保行动被 <Action></Action> 标签包裹并能被正确解析。
`

const zhReflection = `你是{{.Name}}，正在反思游戏上一轮的结果。

上一轮结果：
- 你的行动：{{.MyAction}}
- 其他玩家的行动：
{{- range .Others}}
  - {{.Agent}}：{{.Value}}
{{- end}}
- 收益：
{{- range .Payoffs}}
  - {{.Agent}}：{{.Value}}
{{- end}}

游戏规则：
{{.Rules}}

请分析结果并提供你对下一轮的战略思考。
请你确保你的思考和你的行为模式所匹配，你的行为模式是：{{.Behavior}}。
你的回复格式必须如下：
<Reflection>your_thoughts</Reflection>
`
