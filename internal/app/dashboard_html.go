package app

const dashboardHTML = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Good Times Index</title>
    <script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
    <style>
        :root {
            --bg-primary: #f8fafc;
            --bg-secondary: #ffffff;
            --border-color: #e2e8f0;
            --text-primary: #0f172a;
            --text-secondary: #475569;
            --accent-green: #16a34a;
            --accent-red: #dc2626;
        }
        .dark-mode {
            --bg-primary: #0b1220;
            --bg-secondary: #111827;
            --border-color: #1f2937;
            --text-primary: #e5e7eb;
            --text-secondary: #94a3b8;
            --accent-green: #4ade80;
            --accent-red: #f87171;
        }
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg-primary);
            color: var(--text-primary);
            padding: 20px;
            line-height: 1.5;
        }
        .header { display: flex; justify-content: space-between; align-items: center; margin-bottom: 16px; flex-wrap: wrap; gap: 10px; }
        .kpi-value { font-size: 40px; font-weight: 700; }
        .delta.up { color: var(--accent-green); }
        .delta.down { color: var(--accent-red); }
        .muted { color: var(--text-secondary); font-size: 13px; }
        .grid { display: grid; grid-template-columns: repeat(auto-fit, minmax(280px, 1fr)); gap: 16px; margin-top: 16px; }
        .card { background: var(--bg-secondary); border: 1px solid var(--border-color); border-radius: 8px; padding: 16px; }
        .row { display: flex; justify-content: space-between; padding: 4px 0; border-bottom: 1px solid var(--border-color); }
        .row:last-child { border-bottom: none; }
        .controls { display: flex; gap: 10px; flex-wrap: wrap; align-items: center; }
        #chart { min-height: 420px; }
        #placeholder { padding: 80px 0; text-align: center; }
        #overlay { position: fixed; right: 20px; bottom: 20px; max-width: 360px; display: none; }
        #overlay.visible { display: block; }
    </style>
</head>
<body>
    <div class="header">
        <div>
            <div class="muted">Good Times Index</div>
            <div class="kpi-value" id="kpi-value">-</div>
            <div><span class="delta" id="kpi-delta"></span> <span class="muted" id="kpi-year"></span></div>
            <div class="muted" id="updated-ago"></div>
        </div>
        <div class="controls">
            <label>Colour <select id="lineColor">
                <option>auto</option><option>blue</option><option>green</option>
                <option>purple</option><option>orange</option><option>red</option>
            </select></label>
            <label>Weight <input id="lineWeight" type="number" min="1" max="10"></label>
            <label>Range <select id="range">
                <option>all</option><option>20y</option><option>decade</option><option>5y</option>
            </select></label>
            <label><input id="darkMode" type="checkbox"> Dark</label>
            <label><input id="highlightDecade" type="checkbox"> Highlight decade</label>
            <label><input id="autoRefresh" type="checkbox"> Auto-refresh</label>
            <button id="reset">Reset</button>
        </div>
    </div>

    <div class="card">
        <div id="chart"></div>
        <div id="placeholder" class="muted" style="display:none">No data available</div>
    </div>

    <div class="grid">
        <div class="card"><h3>Signals</h3><div id="signals"></div><p class="muted" id="note"></p></div>
        <div class="card"><h3>Categories</h3><div id="categories"></div></div>
        <div class="card"><h3>Sources</h3><div id="sources"></div></div>
    </div>

    <div class="card" id="overlay">
        <button id="overlay-close" style="float:right">×</button>
        <h3 id="overlay-year"></h3>
        <div>GTI: <span id="overlay-value"></span></div>
        <div id="overlay-event"></div>
        <p class="muted" id="overlay-summary"></p>
    </div>

    <script>
        const $ = (id) => document.getElementById(id);
        const post = (path, body) => fetch(path, {
            method: 'POST',
            headers: {'Content-Type': 'application/json'},
            body: JSON.stringify(body || {}),
        }).then(r => r.json());
        const text = (el, s) => { el.textContent = s == null ? '' : s; };
        let chartBound = false;

        function rows(el, items, label, value) {
            el.replaceChildren(...items.map(item => {
                const row = document.createElement('div');
                row.className = 'row';
                const a = document.createElement('span'); text(a, label(item));
                const b = document.createElement('span'); text(b, value(item));
                row.append(a, b);
                return row;
            }));
        }

        function renderOverlay(st) {
            $('overlay').classList.toggle('visible', !!st.visible);
            if (!st.detail) return;
            text($('overlay-year'), st.detail.year);
            text($('overlay-value'), st.detail.value);
            text($('overlay-event'), st.detail.event);
            text($('overlay-summary'), st.detail.summary);
        }

        function renderView(v) {
            const p = v.preferences;
            document.body.classList.toggle('dark-mode', p.darkMode);
            $('lineColor').value = p.lineColor;
            $('lineWeight').value = p.lineWeight;
            $('range').value = p.range;
            $('darkMode').checked = p.darkMode;
            $('highlightDecade').checked = p.highlightDecade;
            $('autoRefresh').checked = v.autoRefresh;

            if (v.kpi.hasData) {
                text($('kpi-value'), v.kpi.value);
                text($('kpi-year'), v.kpi.year);
            }
            text($('kpi-delta'), v.kpi.deltaText);
            $('kpi-delta').className = 'delta ' + ((v.kpi.deltaPct || 0) < 0 ? 'down' : 'up');
            text($('updated-ago'), v.updatedAgo);
            text($('note'), v.note);

            rows($('signals'), v.signals, s => s.label, s => s.text);
            rows($('categories'), v.categories, c => c.name, c => c.text);
            rows($('sources'), (v.sources && v.sources.sources) || [], s => s.category, s => s.name);

            $('placeholder').style.display = v.noData ? 'block' : 'none';
            $('chart').style.display = v.noData ? 'none' : 'block';
            if (!v.noData) {
                Plotly.react('chart', v.chart.data, v.chart.layout, v.chart.config);
                if (!chartBound) {
                    chartBound = true;
                    $('chart').on('plotly_click', e => post('/api/overlay/select', {year: e.points[0].x}));
                    $('chart').on('plotly_hover', e => post('/api/overlay/hover', {year: e.points[0].x}));
                }
            }
            renderOverlay(v.overlay);
        }

        function connect() {
            const proto = location.protocol === 'https:' ? 'wss:' : 'ws:';
            const ws = new WebSocket(proto + '//' + location.host + '/ws');
            ws.onmessage = (e) => {
                const msg = JSON.parse(e.data);
                if (msg.type === 'view') renderView(msg.payload);
                if (msg.type === 'ago') text($('updated-ago'), msg.payload);
                if (msg.type === 'overlay') renderOverlay(msg.payload);
            };
            ws.onclose = () => setTimeout(connect, 3000);
        }

        ['lineColor', 'range'].forEach(id => $(id).addEventListener('change', e => post('/api/preferences', {[id]: e.target.value})));
        $('lineWeight').addEventListener('change', e => post('/api/preferences', {lineWeight: parseInt(e.target.value, 10)}));
        ['darkMode', 'highlightDecade'].forEach(id => $(id).addEventListener('change', e => post('/api/preferences', {[id]: e.target.checked})));
        $('autoRefresh').addEventListener('change', e => post('/api/auto-refresh', {enabled: e.target.checked}));
        $('reset').addEventListener('click', () => post('/api/preferences/reset'));
        $('overlay-close').addEventListener('click', () => post('/api/overlay/dismiss'));
        document.addEventListener('keydown', e => { if (e.key === 'Escape') post('/api/overlay/dismiss'); });
        connect();
    </script>
</body>
</html>
`
